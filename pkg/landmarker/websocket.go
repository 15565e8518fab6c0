package landmarker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"LensFitter/pkg/measurement"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// reply is the landmark service answer to one binary JPEG frame.
type reply struct {
	Found     bool        `json:"found"`
	Landmarks [][]float64 `json:"landmarks"`
	Error     string      `json:"error,omitempty"`
}

type wsDetector struct {
	cfg  Config
	log  *logrus.Logger
	conn *websocket.Conn
	// sem guards conn; holding it means owning the single request/reply slot.
	sem  chan struct{}
	done chan struct{}
	once sync.Once
}

// NewWebSocketDetector connects to the landmark service in the background; Detect
// reconnects on demand when the connection is missing or broken.
//
// The service answers frames in order on one connection, so round trips are serialised.
// A caller waiting for its turn gives up when its context is done.
func NewWebSocketDetector(cfg Config, log *logrus.Logger) Detector {
	d := &wsDetector{
		cfg:  cfg,
		log:  log,
		sem:  make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	go d.connectInBackground()

	return d
}

func (d *wsDetector) lock() {
	d.sem <- struct{}{}
}

func (d *wsDetector) lockContext(ctx context.Context) error {
	select {
	case d.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *wsDetector) unlock() {
	<-d.sem
}

func (d *wsDetector) connectInBackground() {
	d.lock()
	defer d.unlock()

	if d.conn != nil {
		return
	}
	if err := d.reconnectLocked(); err != nil {
		d.log.WithFields(logrus.Fields{
			"url":   d.cfg.URL,
			"error": err.Error(),
		}).Warn("Initial connection to landmark service failed, will retry on demand")
		return
	}
	d.log.WithField("url", d.cfg.URL).Info("Connected to landmark service")
}

func (d *wsDetector) reconnectLocked() error {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}

	select {
	case <-d.done:
		return fmt.Errorf("%w: detector closed", ErrDetectorUnavailable)
	default:
	}

	if d.cfg.URL == "" {
		return fmt.Errorf("%w: url not configured", ErrDetectorUnavailable)
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = d.cfg.HandshakeTimeout

	conn, _, err := dialer.Dial(d.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrDetectorUnavailable, d.cfg.URL, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(d.cfg.WriteTimeout))
		if err != nil {
			d.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	d.conn = conn

	if d.cfg.PingInterval > 0 {
		go d.keepAlive(conn)
	}

	return nil
}

func (d *wsDetector) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(d.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
		}

		d.lock()
		if d.conn != conn {
			d.unlock()
			return
		}
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(d.cfg.WriteTimeout))
		if err != nil {
			d.log.Warnf("Landmark service ping failed: %v", err)
			conn.Close()
			d.conn = nil
		}
		d.unlock()

		if err != nil {
			return
		}
	}
}

func (d *wsDetector) Detect(ctx context.Context, frame Frame) (Detection, error) {
	if err := ctx.Err(); err != nil {
		return Detection{}, err
	}

	if err := d.lockContext(ctx); err != nil {
		return Detection{}, err
	}
	defer d.unlock()

	if d.conn == nil {
		if err := d.reconnectLocked(); err != nil {
			return Detection{}, err
		}
	}
	conn := d.conn

	if err := conn.SetWriteDeadline(deadline(ctx, d.cfg.WriteTimeout)); err != nil {
		d.dropLocked()
		return Detection{}, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Data); err != nil {
		d.dropLocked()
		return Detection{}, fmt.Errorf("%w: send frame: %v", ErrDetectorUnavailable, err)
	}

	if err := conn.SetReadDeadline(deadline(ctx, d.cfg.ReadTimeout)); err != nil {
		d.dropLocked()
		return Detection{}, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}
	_, message, err := conn.ReadMessage()
	if err != nil {
		d.dropLocked()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Detection{}, ctxErr
		}
		return Detection{}, fmt.Errorf("%w: read reply: %v", ErrDetectorUnavailable, err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	var r reply
	if err := jsoniter.Unmarshal(message, &r); err != nil {
		return Detection{}, fmt.Errorf("%w: decode reply: %v", ErrDetectorRejected, err)
	}
	if r.Error != "" {
		return Detection{}, fmt.Errorf("%w: %s", ErrDetectorRejected, r.Error)
	}

	d.log.WithFields(logrus.Fields{
		"found":      r.Found,
		"landmarks":  len(r.Landmarks),
		"frame_size": len(frame.Data),
	}).Debug("Received landmark detection")

	if !r.Found || len(r.Landmarks) == 0 {
		return Detection{Found: false}, nil
	}

	landmarks, err := measurement.FromPoints(r.Landmarks)
	if err != nil {
		return Detection{}, err
	}

	return Detection{
		Found:     true,
		Landmarks: landmarks,
	}, nil
}

func (d *wsDetector) dropLocked() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

func (d *wsDetector) Close() error {
	d.once.Do(func() { close(d.done) })

	d.lock()
	defer d.unlock()

	if d.conn == nil {
		return nil
	}
	d.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(d.cfg.WriteTimeout))
	err := d.conn.Close()
	d.conn = nil
	return err
}

func deadline(ctx context.Context, timeout time.Duration) time.Time {
	t := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(t) {
		return dl
	}
	return t
}
