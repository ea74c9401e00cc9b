package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// The public signing surface. The path token is the only credential.

func (rt *Router) resolveQuote(w http.ResponseWriter, r *http.Request) {
	view, err := rt.signing.Resolve(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) signQuote(w http.ResponseWriter, r *http.Request) {
	signerName, image, err := readSignature(w, r, rt.signatureLimit)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	view, err := rt.signing.SubmitSignature(r.Context(), chi.URLParam(r, "token"), signerName, image)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) declineQuote(w http.ResponseWriter, r *http.Request) {
	var req declineRequest
	if err := decodeJSON(r, &req, true); err != nil {
		rt.writeError(w, r, err)
		return
	}
	view, err := rt.signing.Decline(r.Context(), chi.URLParam(r, "token"), req.Reason)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
