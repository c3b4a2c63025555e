package main

import (
	"errors"
	"html/template"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/advisor"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/completion"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/format"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/i18n"
)

const (
	noticeError = "error"
	noticeInfo  = "info"
)

type chatTurn struct {
	Role  string
	Label string
	HTML  template.HTML
}

// chatView is the view model of the chat window.
type chatView struct {
	Lang       string
	Dir        string
	Turns      []chatTurn
	Routine    template.HTML
	Notice     string
	NoticeKind string
}

func (a *app) buildChatView(lang string, conv *advisor.Conversation) chatView {
	view := chatView{Lang: lang, Dir: i18n.Direction(lang)}
	if conv == nil {
		return view
	}
	for _, turn := range conv.Visible() {
		ct := chatTurn{Role: string(turn.Role)}
		switch turn.Role {
		case advisor.RoleUser:
			ct.Label = a.t(lang, "chat.you")
			ct.HTML = template.HTML(template.HTMLEscapeString(turn.Content))
		default:
			ct.Label = a.t(lang, "chat.advisor")
			ct.HTML = format.Markdown(turn.Content)
		}
		view.Turns = append(view.Turns, ct)
	}
	return view
}

// advisorErrorMessage maps a flow error to the user-facing text. failedKey names
// the flow-specific message for endpoint and response-shape failures.
func (a *app) advisorErrorMessage(lang string, err error, failedKey string) (string, string) {
	var status *completion.StatusError
	switch {
	case errors.Is(err, advisor.ErrEmptyMessage):
		return a.t(lang, "chat.empty"), noticeInfo
	case errors.Is(err, advisor.ErrNoSelection):
		return a.t(lang, "routine.need_selection"), noticeInfo
	case errors.Is(err, advisor.ErrMissingCredential):
		return a.t(lang, "error.credential"), noticeError
	case errors.Is(err, completion.ErrMalformedResponse), errors.As(err, &status):
		return a.t(lang, failedKey), noticeError
	default:
		return a.t(lang, "error.network"), noticeError
	}
}
