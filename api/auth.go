package api

import (
	"net/http"

	"github.com/Caolboy/LABERS-HOST/internal/service/auth"
	"github.com/Caolboy/LABERS-HOST/internal/service/registration"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth         auth.AuthUseCase
	registration registration.RegistrationUseCase
}

func NewAuthHandler(authService auth.AuthUseCase, registrationService registration.RegistrationUseCase) *AuthHandler {
	return &AuthHandler{auth: authService, registration: registrationService}
}

func (h *AuthHandler) Register(router *gin.RouterGroup) {
	router.POST("/login", h.login)
	router.POST("/register", h.startRegistration)
	router.POST("/register/resend", h.resendCode)
	router.POST("/register/verify", h.verifyRegistration)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req auth.LoginInput
	if !bindJSON(c, &req) {
		return
	}
	token, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, token)
}

func (h *AuthHandler) startRegistration(c *gin.Context) {
	var req registration.StartInput
	if !bindJSON(c, &req) {
		return
	}
	if err := h.registration.Start(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusAccepted, "OTP sent successfully to your email.")
}

func (h *AuthHandler) resendCode(c *gin.Context) {
	var req registration.ResendInput
	if !bindJSON(c, &req) {
		return
	}
	if err := h.registration.Resend(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusAccepted, "New OTP sent successfully to your email.")
}

func (h *AuthHandler) verifyRegistration(c *gin.Context) {
	var req registration.VerifyInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.registration.Verify(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}
