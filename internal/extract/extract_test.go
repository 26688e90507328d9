package extract

import (
	"errors"
	"testing"

	apperrors "cvalign/internal/errors"
	"cvalign/internal/types"
)

func TestKindFromFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		expected    types.DocumentKind
		expectError bool
	}{
		{
			name:     "pdf lowercase",
			filename: "cv.pdf",
			expected: types.DocumentPDF,
		},
		{
			name:     "pdf uppercase",
			filename: "CV.PDF",
			expected: types.DocumentPDF,
		},
		{
			name:     "docx",
			filename: "resume.docx",
			expected: types.DocumentDOCX,
		},
		{
			name:     "mixed case docx",
			filename: "Resume.DocX",
			expected: types.DocumentDOCX,
		},
		{
			name:        "doc is unsupported",
			filename:    "resume.doc",
			expectError: true,
		},
		{
			name:        "txt is unsupported",
			filename:    "resume.txt",
			expectError: true,
		},
		{
			name:        "no extension",
			filename:    "resume",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := KindFromFilename(tt.filename)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				var appErr *apperrors.AppError
				if !errors.As(err, &appErr) {
					t.Fatalf("Expected AppError, got %T", err)
				}
				if appErr.Type != apperrors.ErrorTypeValidation {
					t.Errorf("Expected validation error, got %s", appErr.Type)
				}
				return
			}

			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if kind != tt.expected {
				t.Errorf("Expected kind %s, got %s", tt.expected, kind)
			}
		})
	}
}

func TestExtractEmptyUpload(t *testing.T) {
	for _, kind := range []types.DocumentKind{types.DocumentPDF, types.DocumentDOCX} {
		t.Run(string(kind), func(t *testing.T) {
			_, err := Extract([]byte{}, kind)
			if err == nil {
				t.Fatal("Expected error for 0-byte upload")
			}

			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("Expected AppError, got %T", err)
			}
			if appErr.Type != apperrors.ErrorTypeExtraction {
				t.Errorf("Expected extraction error, got %s", appErr.Type)
			}
		})
	}
}

func TestExtractGarbageBytes(t *testing.T) {
	garbage := []byte("this is neither a pdf nor a docx")

	for _, kind := range []types.DocumentKind{types.DocumentPDF, types.DocumentDOCX} {
		t.Run(string(kind), func(t *testing.T) {
			_, err := Extract(garbage, kind)
			if err == nil {
				t.Fatal("Expected error for garbage bytes")
			}

			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("Expected AppError, got %T", err)
			}
			if appErr.Type != apperrors.ErrorTypeExtraction {
				t.Errorf("Expected extraction error, got %s", appErr.Type)
			}
		})
	}
}

func TestExtractUnknownKind(t *testing.T) {
	_, err := Extract([]byte("data"), types.DocumentKind("odt"))
	if err == nil {
		t.Fatal("Expected error for unknown kind")
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("Expected AppError, got %T", err)
	}
	if appErr.Type != apperrors.ErrorTypeValidation {
		t.Errorf("Expected validation error, got %s", appErr.Type)
	}
}
