package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/resume-enhancer/internal/db"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "rawText", Message: "cannot be changed"}
	assert.Equal(t, "validation error: rawText - cannot be changed", err.Error())
	assert.Equal(t, "No file provided", (&ErrValidation{Message: "No file provided"}).Error())
}

func TestErrUploadTooLarge(t *testing.T) {
	err := &ErrUploadTooLarge{Limit: 10 << 20}
	assert.Equal(t, "File size too large. Please upload files smaller than 10MB.", err.Error())
	assert.Equal(t, "File size too large. Please upload files smaller than 1500 bytes.", (&ErrUploadTooLarge{Limit: 1500}).Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&ErrValidation{Message: "x"}, http.StatusBadRequest},
		{&ErrUploadTooLarge{Limit: 1 << 20}, http.StatusBadRequest},
		{fmt.Errorf("get: %w", db.ErrNotFound), http.StatusNotFound},
		{&ErrUnavailable{Feature: "resume store"}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
