package ledger

import (
	"errors"
)

// Kind classifies ledger failures for the transport layer.
type Kind string

const (
	KindUnauthenticated  Kind = "unauthenticated"
	KindNotFound         Kind = "not_found"
	KindPermissionDenied Kind = "permission_denied"
	KindConflict         Kind = "conflict"
	KindInvalidArgument  Kind = "invalid_argument"
)

// Error is a user-facing ledger error. Message is shown to the end user as is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict)
// holds for every conflict regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrUnauthenticated  = &Error{Kind: KindUnauthenticated, Message: "No autenticado"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "No encontrado"}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied, Message: "Sin permisos"}
	ErrConflict         = &Error{Kind: KindConflict, Message: "Conflicto"}
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument, Message: "Argumento inválido"}
)

var (
	errBranchNotFound   = &Error{Kind: KindNotFound, Message: "Sucursal no encontrada"}
	errBranchForbidden  = &Error{Kind: KindPermissionDenied, Message: "No tienes permiso sobre esta sucursal"}
	errShiftNotFound    = &Error{Kind: KindNotFound, Message: "Turno no encontrado"}
	errShiftAlreadyOpen = &Error{Kind: KindConflict, Message: "Ya existe un turno abierto para esta sucursal"}
	errShiftClosed      = &Error{Kind: KindConflict, Message: "El turno ya está cerrado"}
	errNegativeOpening  = &Error{Kind: KindInvalidArgument, Message: "El efectivo inicial no puede ser negativo"}
	errNegativeActual   = &Error{Kind: KindInvalidArgument, Message: "El efectivo contado no puede ser negativo"}
)

// KindOf returns the kind of a ledger error, or "" for anything else
// (storage failures and the like).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
