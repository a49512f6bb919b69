package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/hivechat/room-coordinator/internal/model"
	"github.com/hivechat/room-coordinator/pkg/logger"
)

// subjectPrefix namespaces all room-update traffic.
const subjectPrefix = "rooms.node"

// Config holds NATS connection configuration.
type Config struct {
	URL      string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
}

// NATS is the NATS-backed transport. Commands for a node are published to
// rooms.node.<nodeID>.cmd; each node subscribes to its own subject and hands
// inbound commands to the local session gateway.
type NATS struct {
	conn   *nats.Conn
	nodeID string
	local  Handler
	logger *logger.Logger
}

// Connect establishes a connection to the NATS server.
func Connect(ctx context.Context, cfg Config, nodeID string, log *logger.Logger) (*NATS, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	if cfg.CAFile != "" && cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsConfig, err := createTLSConfig(cfg.CAFile, cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATS{
		conn:   nc,
		nodeID: nodeID,
		logger: log,
	}, nil
}

// SetLocalHandler installs the sink for commands whose endpoint is local.
// Must be called before Post is used for local deliveries.
func (t *NATS) SetLocalHandler(h Handler) {
	t.local = h
}

// Post delivers one command. A local endpoint is handed straight to the local
// handler; a `/remote/<node>/...` endpoint is published to that node's subject.
func (t *NATS) Post(ctx context.Context, endpoint string, cmd *model.RoomUpdate) error {
	if node, ok := remoteNode(endpoint); ok {
		data, err := json.Marshal(cmd)
		if err != nil {
			return fmt.Errorf("marshal command: %w", err)
		}
		if err := t.conn.Publish(nodeSubject(node), data); err != nil {
			return fmt.Errorf("publish to %s: %w", node, err)
		}
		return nil
	}

	if t.local == nil {
		return fmt.Errorf("no local handler for endpoint %q", endpoint)
	}
	t.local(cmd)
	return nil
}

// SubscribeInbound subscribes to this node's command subject and dispatches
// each inbound command to the local handler.
func (t *NATS) SubscribeInbound() (*nats.Subscription, error) {
	sub, err := t.conn.Subscribe(nodeSubject(t.nodeID), func(m *nats.Msg) {
		var cmd model.RoomUpdate
		if err := json.Unmarshal(m.Data, &cmd); err != nil {
			t.logger.Warn("dropping malformed inbound command", zap.Error(err))
			return
		}
		if t.local != nil {
			t.local(&cmd)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe inbound: %w", err)
	}
	return sub, nil
}

// IsConnected reports whether the NATS connection is up.
func (t *NATS) IsConnected() bool {
	return t.conn != nil && t.conn.IsConnected()
}

// Close closes the NATS connection.
func (t *NATS) Close() {
	if t.conn != nil {
		t.conn.Close()
	}
}

func nodeSubject(nodeID string) string {
	return fmt.Sprintf("%s.%s.cmd", subjectPrefix, nodeID)
}

// remoteNode extracts the node id from a `/remote/<node>/<command>` endpoint.
func remoteNode(endpoint string) (string, bool) {
	const prefix = "/remote/"
	if !strings.HasPrefix(endpoint, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(endpoint, prefix)
	if i := strings.IndexByte(rest, '/'); i > 0 {
		return rest[:i], true
	}
	return "", false
}

func createTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert: %w", err)
	}

	return &tls.Config{
		RootCAs:      caCertPool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
