package handler

import (
	"net/http"
	"net/url"

	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

// LandingHandler serves the public referral links.
type LandingHandler struct {
	attribution *service.AttributionService
	cookieName  string
	signupURL   string
	secure      bool
}

func NewLandingHandler(attribution *service.AttributionService, cookieName, signupURL string, secure bool) *LandingHandler {
	return &LandingHandler{attribution: attribution, cookieName: cookieName, signupURL: signupURL, secure: secure}
}

// Visit handles GET /sales/:code. It records the click, drops the attribution cookie and sends
// the visitor to signup. Unknown or inactive codes get 404.
func (h *LandingHandler) Visit(c *gin.Context) {
	code := c.Param("code")
	_, token, err := h.attribution.RecordClick(c.Request.Context(), service.Visit{
		Code:      code,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	})
	if err != nil {
		respondError(c, "landing", err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, int(h.attribution.CookieLifetime().Seconds()), "/", "", h.secure, true)
	c.Redirect(http.StatusFound, h.signupURL+"?ref="+url.QueryEscape(code))
}
