package service

import (
	"context"
	"errors"
	"strings"

	"github.com/tillworks/tillsuite/internal/auth/store"
	"github.com/tillworks/tillsuite/pkg/oauthsdk"
)

// UserInfoService assembles the OpenID Connect userinfo response from the
// verified access-token claims, filtered by the token's granted scopes.
type UserInfoService struct {
	Store store.Store
}

// UserInfo returns the claims the token's scopes permit. The email and
// profile fields only appear when the matching scope was granted.
func (s *UserInfoService) UserInfo(ctx context.Context, userID, tenantID, scope string) (*oauthsdk.UserInfoResponse, error) {
	resp := &oauthsdk.UserInfoResponse{
		Sub:      userID,
		TenantID: tenantID,
	}

	scopes := strings.Fields(scope)
	wantEmail := containsScope(scopes, "email")
	wantProfile := containsScope(scopes, "profile")
	if !wantEmail && !wantProfile {
		return resp, nil
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Token outlived the account; serve the bare subject.
			return resp, nil
		}
		return nil, err
	}

	if wantEmail {
		resp.Email = user.Email
	}
	if wantProfile {
		resp.Name = user.Name
	}
	return resp, nil
}

func containsScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}
