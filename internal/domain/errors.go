package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Taxonomía de la ingesta.
	ErrUpstreamUnavailable = errors.New("ERP no disponible")
	ErrNormalizationFailed = errors.New("normalización fallida")
	ErrCreditNoteFiltered  = errors.New("nota crédito filtrada por reglas de admisión")
	ErrStoreConflict       = errors.New("violación de unicidad en el almacén")
	ErrStoreFailure        = errors.New("fallo del almacén")

	// Aplicación de notas.
	ErrInsufficientBalance = errors.New("saldo de la línea insuficiente para la nota")
	ErrStaleCreditNote     = errors.New("la nota cambió durante la aplicación")
)

// DocumentError asocia un error de la taxonomía al documento ERP que lo produjo.
// errors.Is funciona tanto contra Kind como contra la causa subyacente.
type DocumentError struct {
	Kind       error
	DocumentID string
	Err        error
}

func (e *DocumentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("documento %s: %v", e.DocumentID, e.Kind)
	}
	return fmt.Sprintf("documento %s: %v: %v", e.DocumentID, e.Kind, e.Err)
}

func (e *DocumentError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewDocumentError construye un DocumentError.
func NewDocumentError(kind error, documentID string, err error) *DocumentError {
	return &DocumentError{Kind: kind, DocumentID: documentID, Err: err}
}
