package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clear-retro/clearretro/shared/api"
	"github.com/clear-retro/clearretro/shared/domain"
	"github.com/clear-retro/clearretro/shared/utils"
)

// Join issues a participant identity. No accounts: a display name is enough,
// plus the passcode when joining a private board. Mounted both per board and
// bare (for visitors about to create their first board). The token is
// returned in the body and set as a cookie so browser and API clients work.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	boardId := chi.URLParam(r, "board")

	var body api.JoinRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if boardId != "" {
		if err := h.board.CheckAccess(boardId, body.Passcode); err != nil {
			utils.WriteErrorAndStatusCode(w, err)
			return
		}
	}

	user := domain.User{Id: uuid.NewString(), Name: body.Name}
	token, err := h.jwt.NewToken(user)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     "accessToken",
		Value:    token,
		MaxAge:   int(h.cfg.Public.JwtTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Public.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, api.JoinResponse{
		Token: token,
		User:  api.UserResponse{Id: user.Id, Name: user.Name},
	})
}
