package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"contabile/internal/core"
)

// accountHeader names the caller's account. The reverse proxy in front
// of this service authenticates the user and sets the header, so here
// it is trusted and auto-provisioned.
const accountHeader = "X-Account"

var errUnauthorized = errors.New("missing account header")

// ownerHandler is an http.HandlerFunc that already knows who is
// calling.
type ownerHandler func(w http.ResponseWriter, r *http.Request, owner core.User)

func (s *Server) resolveOwner(r *http.Request) (core.User, error) {
	account := strings.TrimSpace(r.Header.Get(accountHeader))
	if account == "" {
		return core.User{}, errUnauthorized
	}

	owner, err := s.store.GetOrCreateUser(r.Context(), account)
	if err != nil {
		return core.User{}, fmt.Errorf("resolve account: %w", err)
	}
	return owner, nil
}
