package web

import (
	"net/http"
	"net/url"
	"strings"

	"shopchat/internal/chat"
	"shopchat/internal/errors"
	"shopchat/internal/shop"
)

// Handlers contains HTTP route handlers for the chat UI.
type Handlers struct {
	engine   *chat.Engine
	renderer *Renderer
}

// HandleChat handles GET / — render the conversation transcript.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	h.engine.Hydrate(r.Context())
	h.engine.EnsureWelcome()

	turns := h.engine.Turns()
	views := make([]turnView, 0, len(turns))
	for _, t := range turns {
		views = append(views, viewForTurn(t))
	}

	ident := h.engine.Sessions().Current()
	h.renderer.renderPage(w, r, "chat", ChatPageData{
		PageData: PageData{
			Title:   "Shopping Assistant",
			Version: h.renderer.version,
		},
		Turns:      views,
		Focus:      h.engine.Focus(),
		Email:      ident.Email,
		Identified: h.engine.Sessions().Identified(),
		Banner:     r.URL.Query().Get("error"),
	})
}

// HandleSend handles POST /send — submit one user message.
func (h *Handlers) HandleSend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	message := r.FormValue("message")
	if strings.TrimSpace(message) == "" {
		// Empty submissions are a silent no-op.
		redirectHome(w, r, "")
		return
	}

	_, err := h.engine.Send(r.Context(), message, chat.SendOptions{})
	if err != nil {
		// The apology turn is already on the timeline; the banner carries
		// the transient error.
		h.fail(w, r, err)
		return
	}
	redirectHome(w, r, "")
}

// HandleMore handles POST /more/{kind} — load the next result page.
func (h *Handlers) HandleMore(w http.ResponseWriter, r *http.Request) {
	kind := shop.ListKind(r.PathValue("kind"))
	if !shop.ValidListKind(kind) {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("unknown result list "+string(kind)))
		return
	}

	if _, err := h.engine.LoadMore(r.Context(), kind); err != nil {
		h.fail(w, r, err)
		return
	}
	redirectHome(w, r, "")
}

// HandleFocus handles POST /focus/{id} — focus a product the user selected
// from an earlier result list.
func (h *Handlers) HandleFocus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap := findSnapshot(h.engine.Turns(), id)
	if snap == nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("product not found in any result list"))
		return
	}
	if err := h.engine.SetFocus(id, snap); err != nil {
		h.fail(w, r, err)
		return
	}
	redirectHome(w, r, "")
}

// HandleClear handles POST /clear — reset the conversation.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ResetConversation(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	redirectHome(w, r, "")
}

// HandleIdentify handles POST /identify — the email gate.
func (h *Handlers) HandleIdentify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("email is required"))
		return
	}

	if _, _, err := h.engine.Sessions().Identify(r.Context(), email, false); err != nil {
		h.fail(w, r, err)
		return
	}
	h.engine.Hydrate(r.Context())
	redirectHome(w, r, "")
}

// fail reports an engine error: JSON when asked for, otherwise a redirect
// back to the transcript with the message as a transient banner.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") || r.Header.Get("HX-Request") == "true" {
		h.renderer.renderError(w, r, err)
		return
	}
	message := "something went wrong"
	if sErr, ok := err.(*errors.ShopError); ok {
		message = sErr.Message
	}
	redirectHome(w, r, message)
}

func redirectHome(w http.ResponseWriter, r *http.Request, banner string) {
	target := "/"
	if banner != "" {
		target = "/?error=" + url.QueryEscape(banner)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func viewForTurn(t shop.Turn) turnView {
	v := turnView{
		ID:           t.ID,
		Author:       t.Author,
		Text:         t.Text,
		Timestamp:    formatTime(t.CreatedAt),
		ExactMatches: t.ExactMatches,
		Suggestions:  t.Suggestions,
		Orders:       t.Orders,
		FollowUps:    t.SuggestedFollowUps,
		RepliedTo:    t.RepliedTo,
		LoadMore:     t.LoadMore,
	}
	if t.Author == shop.AuthorAssistant {
		v.RenderedHTML = renderMarkdown(t.Text)
	}
	return v
}

// findSnapshot walks the timeline newest-first for a product that appeared
// in any result list or focus snapshot.
func findSnapshot(turns []shop.Turn, id string) *shop.Snapshot {
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		for j := range t.ExactMatches {
			if t.ExactMatches[j].ExternalID == id {
				return &t.ExactMatches[j]
			}
		}
		for j := range t.Suggestions {
			if t.Suggestions[j].ExternalID == id {
				return &t.Suggestions[j]
			}
		}
		if t.FocusedProduct != nil && t.FocusedProduct.ExternalID == id {
			return t.FocusedProduct
		}
	}
	return nil
}
