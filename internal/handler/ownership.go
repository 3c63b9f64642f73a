package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/josh-kwaku/lingualance-api/internal/auth"
	"github.com/josh-kwaku/lingualance-api/internal/service"
)

func callerFromRequest(r *http.Request) (service.Caller, *AppError) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return service.Caller{}, ErrMissingToken
	}
	return service.Caller{UserID: claims.UserID, Role: claims.Role}, nil
}

// pathID parses the {id} path value; a malformed id reads as notFound.
func pathID(r *http.Request, notFound *AppError) (uuid.UUID, *AppError) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

func pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
