package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"traductor/log"

	"nhooyr.io/websocket"
)

const (
	deepgramEndpoint    = "wss://api.deepgram.com/v1/listen"
	deepgramDialTimeout = 10 * time.Second
	streamAudioBuffer   = 128
	streamUpdateBuffer  = 64
)

type deepgramModel struct {
	key      string
	model    string
	language string
	rate     uint32
	dial     func(ctx context.Context) (rawStream, error)
}

func newDeepgramModel(cfg Config, sampleRate uint32) *deepgramModel {
	m := &deepgramModel{
		key:      cfg.DeepgramKey,
		model:    cfg.DeepgramModel,
		language: cfg.Language,
		rate:     sampleRate,
	}
	m.dial = m.dialWebsocket
	return m
}

func (m *deepgramModel) Backend() string    { return "deepgram" }
func (m *deepgramModel) SampleRate() uint32 { return m.rate }
func (m *deepgramModel) Close() error       { return nil }

func (m *deepgramModel) NewDecoder(ctx context.Context) (Decoder, error) {
	dialCtx, cancel := context.WithTimeout(ctx, deepgramDialTimeout)
	defer cancel()
	ws, err := m.dial(dialCtx)
	if err != nil {
		return nil, fmt.Errorf("deepgram connect: %w", err)
	}
	return newStreamDecoder(ws), nil
}

func (m *deepgramModel) listenURL() string {
	endpoint, _ := url.Parse(deepgramEndpoint)
	q := endpoint.Query()
	model := m.model
	if model == "" {
		model = "nova-3"
	}
	q.Set("model", model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(int(m.rate)))
	q.Set("channels", "1")
	q.Set("interim_results", "true")
	q.Set("endpointing", "300")
	q.Set("utterance_end_ms", "1000")
	q.Set("smart_format", "true")
	if m.language != "" {
		q.Set("language", m.language)
	}
	endpoint.RawQuery = q.Encode()
	return endpoint.String()
}

func (m *deepgramModel) dialWebsocket(ctx context.Context) (rawStream, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Token "+m.key)

	// The dial context only bounds the handshake; the stream lives until Close.
	streamCtx, cancel := context.WithCancel(context.Background())
	conn, _, err := websocket.Dial(ctx, m.listenURL(), &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		cancel()
		return nil, err
	}
	return &deepgramSocket{conn: conn, ctx: streamCtx, cancel: cancel}, nil
}

type rawStream interface {
	Send(pcm []byte) error
	CloseSend() error
	Recv() (streamUpdate, error)
	Close() error
}

type streamUpdate struct {
	Transcript   string
	IsFinal      bool
	SpeechFinal  bool
	UtteranceEnd bool
	Err          error // set for a message that could not be parsed
}

type deepgramResponse struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type deepgramSocket struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *deepgramSocket) Send(pcm []byte) error {
	return s.conn.Write(s.ctx, websocket.MessageBinary, pcm)
}

func (s *deepgramSocket) CloseSend() error {
	return s.conn.Write(s.ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`))
}

func (s *deepgramSocket) Recv() (streamUpdate, error) {
	_, data, err := s.conn.Read(s.ctx)
	if err != nil {
		return streamUpdate{}, err
	}
	return parseDeepgram(data), nil
}

func (s *deepgramSocket) Close() error {
	s.cancel()
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

func parseDeepgram(data []byte) streamUpdate {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return streamUpdate{Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}
	switch resp.Type {
	case "", "Results":
	case "UtteranceEnd":
		return streamUpdate{UtteranceEnd: true}
	default:
		// Metadata, SpeechStarted
		return streamUpdate{}
	}
	if len(resp.Channel.Alternatives) == 0 {
		return streamUpdate{Err: fmt.Errorf("%w: result without alternatives", ErrDecode)}
	}
	return streamUpdate{
		Transcript:  strings.TrimSpace(resp.Channel.Alternatives[0].Transcript),
		IsFinal:     resp.IsFinal,
		SpeechFinal: resp.SpeechFinal,
	}
}

// streamDecoder turns the server's asynchronous result messages into the
// synchronous Decode contract. A sender goroutine ships audio and a
// receiver goroutine queues updates; Decode drains whatever has arrived.
type streamDecoder struct {
	ws       rawStream
	audioCh  chan []byte
	updates  chan streamUpdate
	quit     chan struct{}
	sendDone chan struct{}
	recvDone chan struct{}

	// Owned by the Decode caller.
	committed string
	interim   string

	mu        sync.Mutex
	err       error
	errOnce   sync.Once
	closing   bool
	closeOnce sync.Once
}

func newStreamDecoder(ws rawStream) *streamDecoder {
	d := &streamDecoder{
		ws:       ws,
		audioCh:  make(chan []byte, streamAudioBuffer),
		updates:  make(chan streamUpdate, streamUpdateBuffer),
		quit:     make(chan struct{}),
		sendDone: make(chan struct{}),
		recvDone: make(chan struct{}),
	}
	go d.runSender()
	go d.runReceiver()
	return d
}

func (d *streamDecoder) Decode(pcm []byte) (Hypothesis, error) {
	d.mu.Lock()
	err := d.err
	d.mu.Unlock()
	if err != nil {
		return Hypothesis{}, err
	}

	select {
	case d.audioCh <- pcm:
	default:
		log.Warn("deepgram send buffer full, dropping audio")
	}

	for {
		select {
		case u := <-d.updates:
			if u.Err != nil {
				return Hypothesis{}, u.Err
			}
			if u.UtteranceEnd {
				if h, ok := d.flush(); ok {
					return h, nil
				}
				continue
			}
			if !u.IsFinal {
				d.interim = u.Transcript
				continue
			}
			d.committed = joinText(d.committed, u.Transcript)
			d.interim = ""
			if u.SpeechFinal {
				if h, ok := d.flush(); ok {
					return h, nil
				}
			}
		default:
			return Hypothesis{Text: joinText(d.committed, d.interim)}, nil
		}
	}
}

// flush ends the current utterance with whatever has been committed.
func (d *streamDecoder) flush() (Hypothesis, bool) {
	text := joinText(d.committed, d.interim)
	d.committed, d.interim = "", ""
	if text == "" {
		return Hypothesis{}, false
	}
	return Hypothesis{Final: true, Text: text}, true
}

func (d *streamDecoder) runSender() {
	defer close(d.sendDone)
	for {
		select {
		case chunk := <-d.audioCh:
			if err := d.ws.Send(chunk); err != nil {
				d.setErr(err)
				return
			}
		case <-d.quit:
			if err := d.ws.CloseSend(); err != nil && !d.isClosing() {
				d.setErr(err)
			}
			return
		}
	}
}

func (d *streamDecoder) runReceiver() {
	defer close(d.recvDone)
	for {
		u, err := d.ws.Recv()
		if err != nil {
			if !d.isClosing() {
				d.setErr(err)
			}
			return
		}
		if u == (streamUpdate{}) {
			continue
		}
		select {
		case d.updates <- u:
		case <-d.quit:
			return
		}
	}
}

func (d *streamDecoder) isClosing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closing
}

func (d *streamDecoder) setErr(err error) {
	d.errOnce.Do(func() {
		d.mu.Lock()
		d.err = fmt.Errorf("deepgram stream: %w", err)
		d.mu.Unlock()
	})
}

func (d *streamDecoder) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closing = true
		d.mu.Unlock()
		close(d.quit)
		<-d.sendDone
		err = d.ws.Close()
		select {
		case <-d.recvDone:
		case <-time.After(2 * time.Second):
			log.Warn("deepgram receiver drain timeout")
		}
	})
	return err
}

func joinText(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
