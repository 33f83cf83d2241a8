package eventapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/linnemanlabs/remedy/internal/incident"
	"github.com/linnemanlabs/remedy/internal/ingest"
	"github.com/linnemanlabs/remedy/internal/slacksig"
)

// retryHeader counts upstream redeliveries of the same event.
const retryHeader = "X-Slack-Retry-Num"

// maxEventBody bounds webhook payload reads.
const maxEventBody = 1 << 20

// envelope is the outer Slack Events API payload.
type envelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	EventID   string `json:"event_id"`
	Event     struct {
		Type    string `json:"type"`
		Subtype string `json:"subtype"`
		BotID   string `json:"bot_id"`
		User    string `json:"user"`
		Text    string `json:"text"`
		Channel string `json:"channel"`
		TS      string `json:"ts"`
	} `json:"event"`
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		http.Error(w, `{"error":"unreadable body"}`, http.StatusBadRequest)
		return
	}

	if err := a.verifier.Verify(
		r.Header.Get(slacksig.SignatureHeader),
		r.Header.Get(slacksig.TimestampHeader),
		body,
	); err != nil {
		a.logger.Warn(r.Context(), "rejected webhook", "reason", err.Error())
		http.Error(w, `{"error":"invalid signature"}`, http.StatusBadRequest)
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	// URL verification handshake: echo the challenge as plain text.
	if env.Type == "url_verification" {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(env.Challenge))
		return
	}

	response := map[string]string{"status": "ok"}

	if env.Event.Type == "message" && env.Event.BotID == "" {
		retries, _ := strconv.Atoi(r.Header.Get(retryHeader))
		ev := incident.Event{
			ID:         env.EventID,
			User:       env.Event.User,
			Channel:    env.Event.Channel,
			Subtype:    env.Event.Subtype,
			Text:       env.Event.Text,
			ReceivedAt: time.Now(),
			RetryCount: retries,
		}
		disposition, inc := a.ingest.Handle(r.Context(), ev)
		switch disposition {
		case ingest.DispositionQueued:
			response["message"] = fmt.Sprintf("Fetched logs for %s", inc.DAGName)
		case ingest.DispositionDuplicate:
			response["message"] = "Duplicate event. No action taken."
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}
