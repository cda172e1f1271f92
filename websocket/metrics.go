package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/websocket"
)

const (
	directionLabel      = "direction"
	errTypeLabel        = "error_type"
	msgTypeLabel        = "msg_type"
	publicEndpointLabel = "public_endpoint"

	directionInbound  = "inbound"
	directionOutbound = "outbound"
)

var (
	wsConnectedClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "The number of clients connected to the visibility stream.",
	}, []string{
		publicEndpointLabel,
	})

	wsMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_msgs",
		Help: "The number of stream messages, by direction.",
	}, []string{
		publicEndpointLabel,
		directionLabel,
		msgTypeLabel,
	})

	wsBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_bytes",
		Help: "The number of stream bytes, by direction.",
	}, []string{
		publicEndpointLabel,
		directionLabel,
		msgTypeLabel,
	})

	wsErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_errors",
		Help: "The errors that occurred while reading or writing stream messages.",
	}, []string{
		publicEndpointLabel,
		directionLabel,
		errTypeLabel,
	})

	wsDroppedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_dropped_msgs",
		Help: "The number of messages dropped because a client send queue was full.",
	}, []string{
		msgTypeLabel,
	})

	wsMsgLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "ws_msg_latency",
		Help: "The time to handle an inbound stream message.",
	}, []string{
		publicEndpointLabel,
		msgTypeLabel,
	})
)

func instrumentDroppedMsg(msg Msg) {
	wsDroppedMsgs.WithLabelValues(msg.TypeString()).Inc()
}

func instrumentTransfer(endpoint, direction string, msg Msg, n int, err error) {
	if err != nil {
		wsErrors.WithLabelValues(endpoint, direction, errors.Type(err)).Inc()
	}

	if n == 0 {
		return
	}

	msgType := msg.TypeString()
	wsMsgs.WithLabelValues(endpoint, direction, msgType).Inc()
	wsBytes.WithLabelValues(endpoint, direction, msgType).Add(float64(n))
}

// HandlerWithMetrics wraps h to record stream traffic metrics labeled with
// publicEndpoint.
func HandlerWithMetrics(h Handler, publicEndpoint string) Handler {
	return &handlerWithMetrics{
		Handler:        h,
		publicEndpoint: publicEndpoint,
	}
}

type handlerWithMetrics struct {
	Handler

	publicEndpoint string
}

func (h *handlerWithMetrics) HandleConnect(conn *websocket.Conn) {
	wsConnectedClients.WithLabelValues(h.publicEndpoint).Inc()
	h.Handler.HandleConnect(conn)
}

func (h *handlerWithMetrics) HandleDisconnect(err error) {
	wsConnectedClients.WithLabelValues(h.publicEndpoint).Dec()
	h.Handler.HandleDisconnect(err)
}

func (h *handlerWithMetrics) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	defer h.observeLatency(msg, time.Now())
	return h.Handler.HandlePing(ctx, respond, msg)
}

func (h *handlerWithMetrics) HandleSnapshotRequest(ctx context.Context, respond ResponseSender, msg Msg) error {
	defer h.observeLatency(msg, time.Now())
	return h.Handler.HandleSnapshotRequest(ctx, respond, msg)
}

func (h *handlerWithMetrics) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (Msg, int, error) {
		msg, n, err := receive()
		instrumentTransfer(h.publicEndpoint, directionInbound, msg, n, err)
		return msg, n, err
	}
}

func (h *handlerWithMetrics) Sender() Sender {
	send := h.Handler.Sender()

	return func(msg Msg) (int, error) {
		n, err := send(msg)
		instrumentTransfer(h.publicEndpoint, directionOutbound, msg, n, err)
		return n, err
	}
}

func (h *handlerWithMetrics) observeLatency(msg Msg, start time.Time) {
	wsMsgLatency.
		WithLabelValues(h.publicEndpoint, msg.TypeString()).
		Observe(time.Since(start).Seconds())
}
