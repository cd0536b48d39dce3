package jwttoken

import (
	authmw "kinship/pkg/platform/middleware/auth"
)

// JWTServiceAdapter lets the auth middleware validate bearer tokens without
// depending on the jwt package. The subject claim is the external account id.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.Claims{AccountID: claims.Subject, Name: claims.Name, Email: claims.Email}, nil
}
