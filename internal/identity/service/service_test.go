package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"reitvest/internal/identity/store"
	"reitvest/internal/platform/logger"
	id "reitvest/pkg/domain"
	dErrors "reitvest/pkg/domain-errors"
)

type IdentitySuite struct {
	suite.Suite
	service *Service
}

func (s *IdentitySuite) SetupTest() {
	s.service = NewService(store.NewInMemory(), "test-signing-key", time.Hour, logger.New())
}

func TestIdentitySuite(t *testing.T) {
	suite.Run(t, new(IdentitySuite))
}

func (s *IdentitySuite) TestRegister() {
	account, err := s.service.Register(context.Background(), "alice", "s3cret-passphrase")
	s.Require().NoError(err)
	s.Equal("alice", account.Name)
	s.Equal(id.DerivePrincipal("alice"), account.Principal)

	s.Run("name is taken", func() {
		_, err := s.service.Register(context.Background(), "alice", "another-secret")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("name is required", func() {
		_, err := s.service.Register(context.Background(), "", "whatever")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *IdentitySuite) TestTokenRoundTrip() {
	_, err := s.service.Register(context.Background(), "alice", "s3cret-passphrase")
	s.Require().NoError(err)

	token, expiresAt, err := s.service.Token(context.Background(), "alice", "s3cret-passphrase")
	s.Require().NoError(err)
	s.NotEmpty(token)
	s.True(expiresAt.After(time.Now()))

	principal, err := s.service.ValidateToken(token)
	s.Require().NoError(err)
	s.Equal(id.DerivePrincipal("alice"), principal)
}

func (s *IdentitySuite) TestTokenRejections() {
	_, err := s.service.Register(context.Background(), "alice", "s3cret-passphrase")
	s.Require().NoError(err)

	s.Run("wrong secret", func() {
		_, _, err := s.service.Token(context.Background(), "alice", "wrong")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown account looks identical to a wrong secret", func() {
		_, _, knownErr := s.service.Token(context.Background(), "alice", "wrong")
		_, _, unknownErr := s.service.Token(context.Background(), "nobody", "wrong")
		s.Require().Error(unknownErr)
		s.Equal(knownErr.Error(), unknownErr.Error())
	})
}

func (s *IdentitySuite) TestValidateTokenRejections() {
	s.Run("garbage token", func() {
		_, err := s.service.ValidateToken("not-a-jwt")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("token signed with another key", func() {
		other := NewService(store.NewInMemory(), "different-key", time.Hour, logger.New())
		_, err := other.Register(context.Background(), "alice", "s3cret-passphrase")
		s.Require().NoError(err)
		token, _, err := other.Token(context.Background(), "alice", "s3cret-passphrase")
		s.Require().NoError(err)

		_, err = s.service.ValidateToken(token)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("expired token", func() {
		expiring := NewService(store.NewInMemory(), "test-signing-key", -time.Minute, logger.New())
		_, err := expiring.Register(context.Background(), "alice", "s3cret-passphrase")
		s.Require().NoError(err)
		token, _, err := expiring.Token(context.Background(), "alice", "s3cret-passphrase")
		s.Require().NoError(err)

		_, err = s.service.ValidateToken(token)
		s.Require().Error(err)
		s.Contains(err.Error(), "expired")
	})
}
