// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/mealplanner/mealplanner/internal/auth"
	"github.com/mealplanner/mealplanner/internal/auth/postgres"
)

var _ = Describe("PostgreSQL auth stores", func() {
	var (
		ctx     context.Context
		users   *postgres.UserRepository
		tokens  *postgres.TokenRepository
		manager *auth.Manager
	)

	BeforeEach(func() {
		ctx = context.Background()
		_, err := testPool.Exec(ctx, `TRUNCATE users CASCADE`)
		Expect(err).NotTo(HaveOccurred())

		users = postgres.NewUserRepository(testPool)
		tokens = postgres.NewTokenRepository(testPool)
		hasher, err := auth.NewArgon2idHasher(auth.Argon2Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1})
		Expect(err).NotTo(HaveOccurred())
		manager, err = auth.NewManager(users, tokens, hasher)
		Expect(err).NotTo(HaveOccurred())
	})

	It("round-trips a user", func() {
		user, err := auth.NewUser("cook", "cook@example.com", "hash", time.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(ctx, user)).To(Succeed())

		got, err := users.GetByEmail(ctx, "COOK@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(user.ID))
		Expect(got.IsActive).To(BeTrue())
		Expect(got.CreatedAt).To(BeTemporally("~", user.CreatedAt, time.Millisecond))
	})

	It("lets exactly one of many concurrent registrations win", func() {
		const attempts = 6
		var (
			wg   sync.WaitGroup
			errs = make([]error, attempts)
		)
		for i := range attempts {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				_, errs[i] = manager.Register(ctx, fmt.Sprintf("cook%d", i), "race@example.com", "Secur3P@ss")
			}(i)
		}
		wg.Wait()

		successes := 0
		for _, err := range errs {
			if err == nil {
				successes++
				continue
			}
			Expect(err).To(MatchError(auth.ErrDuplicateUser))
		}
		Expect(successes).To(Equal(1))
	})

	It("validates, revokes and purges tokens", func() {
		info, err := manager.Register(ctx, "cook", "cook@example.com", "Secur3P@ss")
		Expect(err).NotTo(HaveOccurred())

		issued, err := manager.IssueToken(ctx, info.UserID)
		Expect(err).NotTo(HaveOccurred())

		got, err := manager.ValidateToken(ctx, issued.Token)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.UserID).To(Equal(info.UserID))

		Expect(manager.RevokeToken(ctx, issued.Token)).To(Succeed())
		Expect(manager.RevokeToken(ctx, issued.Token)).To(Succeed())
		_, err = manager.ValidateToken(ctx, issued.Token)
		Expect(err).To(MatchError(auth.ErrTokenInvalid))

		now := time.Now().UTC()
		expired, err := auth.NewToken(info.UserID, auth.HashToken("old"), now.Add(-48*time.Hour), now.Add(-time.Hour))
		Expect(err).NotTo(HaveOccurred())
		Expect(tokens.Create(ctx, expired)).To(Succeed())

		n, err := manager.PurgeExpiredTokens(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
	})

	It("maps a token for a missing user to not found", func() {
		now := time.Now().UTC()
		user, err := auth.NewUser("ghost", "ghost@example.com", "hash", now)
		Expect(err).NotTo(HaveOccurred())
		tok, err := auth.NewToken(user.ID, auth.HashToken("x"), now, now.Add(time.Hour))
		Expect(err).NotTo(HaveOccurred())

		Expect(tokens.Create(ctx, tok)).To(MatchError(auth.ErrNotFound))
	})

	It("revokes every token on password change", func() {
		info, err := manager.Register(ctx, "cook", "cook@example.com", "Secur3P@ss")
		Expect(err).NotTo(HaveOccurred())
		for range 3 {
			_, err = manager.IssueToken(ctx, info.UserID)
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(manager.ChangePassword(ctx, info.UserID, "Secur3P@ss", "N3w!Password")).To(Succeed())

		var count int
		Expect(testPool.QueryRow(ctx, `SELECT COUNT(*) FROM auth_tokens WHERE user_id = $1`, info.UserID.String()).Scan(&count)).To(Succeed())
		Expect(count).To(BeZero())
	})
})
