package main

import (
	"net/http"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/catalog"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/format"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/i18n"
	mw "github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/middleware"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/selection"
)

// ChatHandler sends the visitor's message with the whole transcript and renders the transcript.
// Failures keep the transcript and add a notice.
func (a *app) ChatHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	conv := a.convs.Get(mw.GetSession(r).ID)

	_, err := a.advisor.Chat(r.Context(), conv, r.PostFormValue("message"))
	view := a.buildChatView(lang, conv)
	if err != nil {
		view.Notice, view.NoticeKind = a.advisorErrorMessage(lang, err, "chat.failed")
	}
	a.renderTemplate(w, r, "frag_chat", view)
}

// RoutineHandler asks for a routine built from the current selection and
// replaces the chat window with the reply. The chat transcript is untouched.
func (a *app) RoutineHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	view := chatView{Lang: lang, Dir: i18n.Direction(lang)}

	// an unavailable catalog resolves nothing, which reads as an empty selection
	var products []catalog.Product
	if all, err := a.loadCatalog(r); err == nil {
		products = selection.Selected(all, a.store(r))
	}
	reply, err := a.advisor.Routine(r.Context(), products)
	if err != nil {
		view.Notice, view.NoticeKind = a.advisorErrorMessage(lang, err, "routine.failed")
	} else {
		view.Routine = format.Markdown(reply)
	}
	a.renderTemplate(w, r, "frag_chat", view)
}
