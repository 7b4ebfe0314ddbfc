package gateway

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ussd-gateway/internal/ussd"
	"ussd-gateway/pkg/logger"
)

// Protocol framing prefixes understood by the aggregator: CON keeps
// the dialog open, END closes it.
const (
	frameContinue = "CON "
	frameRelease  = "END "
)

const failClosedText = "Sorry, something went wrong. Please try again later."

// SessionEngine is the part of the USSD engine the transport needs.
type SessionEngine interface {
	Handle(ctx context.Context, req ussd.Request) (ussd.Reply, error)
}

// Handler adapts the aggregator's HTTP callback to the session engine.
//
// Replies are always 200 text/plain: the aggregator treats non-200 as
// a delivery failure and shows the subscriber a carrier error, so even
// internal failures reply END with an apology instead of surfacing a
// status code.
type Handler struct {
	engine SessionEngine
}

func NewHandler(engine SessionEngine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) Inbound(c *gin.Context) {
	req, err := parseInbound(c)
	if err != nil {
		logger.From(c.Request.Context()).Warn("malformed aggregator callback", "err", err)
		h.write(c, ussd.Reply{Text: failClosedText, End: true})
		return
	}

	reply, err := h.engine.Handle(c.Request.Context(), req)
	if err != nil {
		logger.From(c.Request.Context()).Error("session handling failed",
			"phone", req.PhoneNumber, "carrier_session", req.SessionID, "err", err)
		h.write(c, ussd.Reply{Text: failClosedText, End: true})
		return
	}
	h.write(c, reply)
}

func (h *Handler) write(c *gin.Context, reply ussd.Reply) {
	frame := frameContinue
	if reply.End {
		frame = frameRelease
	}
	c.String(http.StatusOK, "%s%s", frame, reply.Text)
}
