// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

//go:build integration

package integration

import (
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/mealplanner/mealplanner/internal/auth"
	"github.com/mealplanner/mealplanner/internal/plan"
	"github.com/mealplanner/mealplanner/internal/session"
)

const (
	email    = "cook@example.com"
	password = "Secur3P@ss"
)

var _ = Describe("Remember-me login against PostgreSQL", Ordered, func() {
	var env *testEnv

	BeforeAll(func() {
		var err error
		env, err = setupTestEnv()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if env != nil {
			env.cleanup()
		}
	})

	login := func(b *browser, pw string, remember bool) int {
		status, _ := b.do(http.MethodPost, "/api/v1/auth/login", map[string]any{
			"email": email, "password": pw, "remember_me": remember,
		})
		return status
	}

	It("registers an account without logging in", func() {
		b := env.newBrowser()
		status, body := b.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
			"username": "cook", "email": "Cook@Example.com", "password": password,
		})
		Expect(status).To(Equal(http.StatusCreated), string(body))
		Expect(b.authenticated()).To(BeFalse())
	})

	It("rejects a second account with the same email", func() {
		b := env.newBrowser()
		status, body := b.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
			"username": "other", "email": "COOK@example.com", "password": password,
		})
		Expect(status).To(Equal(http.StatusConflict))
		var e struct {
			Code string `json:"code"`
		}
		Expect(json.Unmarshal(body, &e)).To(Succeed())
		Expect(e.Code).To(Equal(auth.CodeDuplicateUser))
	})

	It("rejects a wrong password with the generic message", func() {
		b := env.newBrowser()
		Expect(login(b, "wrong-Passw0rd!", false)).To(Equal(http.StatusUnauthorized))
		Expect(b.authenticated()).To(BeFalse())
	})

	It("restores a remembered login in a new browser session", func() {
		first := env.newBrowser()
		Expect(login(first, password, true)).To(Equal(http.StatusOK))
		token := first.cookie(session.DefaultTokenCookie)
		Expect(token).NotTo(BeEmpty())

		second := env.newBrowser()
		second.setCookie(session.DefaultTokenCookie, token)
		Expect(second.authenticated()).To(BeTrue())
		Expect(second.cookie(session.DefaultTokenCookie)).To(Equal(token), "restore does not rotate the token")
	})

	It("does not remember a login without remember-me", func() {
		b := env.newBrowser()
		Expect(login(b, password, false)).To(Equal(http.StatusOK))
		Expect(b.authenticated()).To(BeTrue())
		Expect(b.cookie(session.DefaultTokenCookie)).To(BeEmpty())
	})

	It("revokes the token on logout", func() {
		b := env.newBrowser()
		Expect(login(b, password, true)).To(Equal(http.StatusOK))
		token := b.cookie(session.DefaultTokenCookie)

		status, _ := b.do(http.MethodPost, "/api/v1/auth/logout", nil)
		Expect(status).To(Equal(http.StatusNoContent))
		Expect(b.authenticated()).To(BeFalse())

		_, err := env.manager.ValidateToken(env.ctx, token)
		Expect(err).To(MatchError(auth.ErrTokenInvalid))

		replay := env.newBrowser()
		replay.setCookie(session.DefaultTokenCookie, token)
		Expect(replay.authenticated()).To(BeFalse())
		Expect(replay.cookie(session.DefaultTokenCookie)).To(BeEmpty(), "rejected token is cleared")
	})

	It("generates, stores and lists meal plans", func() {
		b := env.newBrowser()
		Expect(login(b, password, false)).To(Equal(http.StatusOK))

		status, body := b.do(http.MethodPost, "/api/v1/plans", map[string]any{
			"ingredients": []string{"oats", "lentils", "pasta"},
			"max_kcal":    2000,
		})
		Expect(status).To(Equal(http.StatusCreated), string(body))
		var created plan.Plan
		Expect(json.Unmarshal(body, &created)).To(Succeed())
		Expect(created.Saved).To(BeTrue())
		Expect(created.Titles).To(Equal([]string{"Oat Porridge", "Lentil Soup", "Tomato Pasta"}))

		status, body = b.do(http.MethodGet, "/api/v1/plans/"+created.ID.String(), nil)
		Expect(status).To(Equal(http.StatusOK), string(body))

		status, body = b.do(http.MethodGet, "/api/v1/plans", nil)
		Expect(status).To(Equal(http.StatusOK))
		var list struct {
			Plans []plan.Plan `json:"plans"`
		}
		Expect(json.Unmarshal(body, &list)).To(Succeed())
		Expect(list.Plans).To(HaveLen(1))
		Expect(list.Plans[0].ID).To(Equal(created.ID))
	})

	It("revokes every token when the password changes", func() {
		remembered := env.newBrowser()
		Expect(login(remembered, password, true)).To(Equal(http.StatusOK))
		token := remembered.cookie(session.DefaultTokenCookie)

		b := env.newBrowser()
		Expect(login(b, password, false)).To(Equal(http.StatusOK))
		status, body := b.do(http.MethodPost, "/api/v1/auth/password", map[string]string{
			"current_password": password, "new_password": "N3wer!Pass",
		})
		Expect(status).To(Equal(http.StatusNoContent), string(body))

		_, err := env.manager.ValidateToken(env.ctx, token)
		Expect(err).To(MatchError(auth.ErrTokenInvalid))
		Expect(remembered.authenticated()).To(BeFalse())
		Expect(b.authenticated()).To(BeTrue())

		fresh := env.newBrowser()
		Expect(login(fresh, password, false)).To(Equal(http.StatusUnauthorized))
		Expect(login(fresh, "N3wer!Pass", false)).To(Equal(http.StatusOK))
	})

	It("ends a signed-in session when the account is deactivated", func() {
		b := env.newBrowser()
		Expect(login(b, "N3wer!Pass", true)).To(Equal(http.StatusOK))
		Expect(b.authenticated()).To(BeTrue())

		Expect(env.manager.SetActive(env.ctx, email, false)).To(Succeed())
		DeferCleanup(func() {
			Expect(env.manager.SetActive(env.ctx, email, true)).To(Succeed())
		})

		status, _ := b.do(http.MethodGet, "/api/v1/plans", nil)
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(b.authenticated()).To(BeFalse())
		Expect(b.cookie(session.DefaultTokenCookie)).To(BeEmpty())
	})

	It("purges expired tokens", func() {
		n, err := env.manager.PurgeExpiredTokens(env.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeNumerically(">=", 0))
	})
})
