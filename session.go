package wcbridge

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/op/go-logging.v1"

	"github.com/katzenpost/wcbridge/config"
	"github.com/katzenpost/wcbridge/internal/klog"
	"github.com/katzenpost/wcbridge/internal/worker"
)

// terminatedErrorCode marks a synthetic error Response manufactured
// internally to fail a pending call fast on session teardown, so no
// caller of Call/SendTransaction blocks forever past a kill.
const terminatedErrorCode = -999

// sessionRequestParams is the wc_sessionRequest payload.
type sessionRequestParams struct {
	PeerID   string     `json:"peerId"`
	PeerMeta ClientMeta `json:"peerMeta"`
}

// sessionApprovalResult is the result carried in the JSON-RPC response to
// handshakeId.
type sessionApprovalResult struct {
	Approved bool       `json:"approved"`
	ChainID  int        `json:"chainId,omitempty"`
	Accounts []string   `json:"accounts,omitempty"`
	Message  string     `json:"message,omitempty"`
	PeerID   string     `json:"peerId,omitempty"`
	PeerMeta ClientMeta `json:"peerMeta,omitempty"`
}

// sessionUpdateParams is the wc_sessionUpdate payload.
type sessionUpdateParams struct {
	Approved bool     `json:"approved"`
	ChainID  int      `json:"chainId,omitempty"`
	Accounts []string `json:"accounts,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// SessionStatus is the caller-supplied chain/accounts pair for
// approveSession and updateSession.
type SessionStatus struct {
	ChainID  int
	Accounts []string
}

// Options admits exactly one of Bridge, URI or Session. If none is
// given, New falls back to whatever Store.Load returns.
type Options struct {
	// Bridge, supplied alone, starts a fresh dApp-side session: the
	// connector will generate its own key and handshakeTopic when
	// CreateSession is called.
	Bridge string

	// URI, supplied alone, starts a fresh wallet-side session from a
	// handshake URI received out-of-band (scanned from a QR code):
	// bridge, key and handshakeTopic come from the URI, and the
	// connector waits for an inbound wc_sessionRequest.
	URI string

	// Session resumes a previously persisted snapshot directly,
	// bypassing Store.
	Session *Snapshot

	// Crypto is the injected AEAD collaborator. Required.
	Crypto Crypto

	// Store is the optional session store adapter. A nil Store disables
	// persistence entirely.
	Store Store

	// ClientMeta describes this process's dApp/wallet integration. It is
	// computed once, here, and never replaced by a resumed snapshot's
	// ClientMeta afterward.
	ClientMeta ClientMeta

	Config *config.Config
	Logger *logging.Logger
}

// Session is the durable record of a relay-mediated encrypted JSON-RPC
// connection and the state machine driving its handshake, approval,
// update and teardown.
type Session struct {
	worker.Worker

	log    *logging.Logger
	cfg    *config.Config
	crypto Crypto
	store  Store

	transport  *Transport
	dispatcher *Dispatcher
	keys       *KeyManager

	clientID   string
	clientMeta ClientMeta

	isInitiator bool

	mu             sync.RWMutex
	bridge         string
	peerID         string
	peerMeta       ClientMeta
	handshakeID    int64
	handshakeTopic string
	chainID        int
	accounts       []string
	connected      bool

	pendingMu sync.Mutex
	pending   map[int64]bool
}

// New constructs a Session admitting exactly one of Options.Bridge,
// Options.URI or Options.Session (or whatever Options.Store.Load
// returns). It does not open the relay connection; call Open for that.
func New(opts Options) (*Session, error) {
	if opts.Crypto == nil {
		return nil, fmt.Errorf("wcbridge: Crypto is required")
	}

	explicit := 0
	if opts.Bridge != "" {
		explicit++
	}
	if opts.URI != "" {
		explicit++
	}
	if opts.Session != nil {
		explicit++
	}
	if explicit > 1 {
		return nil, fmt.Errorf("%w: only one of Bridge, URI or Session may be set", ErrMissingInitialization)
	}

	snapshot := opts.Session
	if explicit == 0 && opts.Store != nil {
		loaded, ok, err := opts.Store.Load()
		if err != nil {
			return nil, err
		}
		if ok {
			snapshot = loaded
		}
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		backend, err := klog.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
		if err != nil {
			return nil, err
		}
		log = backend.GetLogger("wcbridge")
	}

	s := &Session{
		log:        log,
		cfg:        cfg,
		crypto:     opts.Crypto,
		store:      opts.Store,
		dispatcher: NewDispatcher(),
		clientMeta: opts.ClientMeta,
		pending:    make(map[int64]bool),
	}
	s.Worker.Init(log)

	switch {
	case snapshot != nil:
		if snapshot.Bridge == "" {
			return nil, fmt.Errorf("%w: session snapshot has no bridge", ErrMissingInitialization)
		}
		key, err := hex.DecodeString(snapshot.Key)
		if err != nil {
			return nil, fmt.Errorf("wcbridge: malformed session key: %w", err)
		}
		s.bridge = snapshot.Bridge
		s.clientID = snapshot.ClientID
		s.peerID = snapshot.PeerID
		s.peerMeta = snapshot.PeerMeta
		s.handshakeID = snapshot.HandshakeID
		s.handshakeTopic = snapshot.HandshakeTopic
		s.chainID = snapshot.ChainID
		s.accounts = snapshot.Accounts
		s.connected = snapshot.Connected
		s.isInitiator = !snapshot.Connected
		s.keys = NewKeyManager(opts.Crypto, key)

	case opts.URI != "":
		parsed, err := ParseURI(opts.URI)
		if err != nil {
			return nil, err
		}
		key, err := hex.DecodeString(parsed.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed key", ErrInvalidURI)
		}
		s.bridge = parsed.Bridge
		s.handshakeTopic = parsed.HandshakeTopic
		s.clientID = uuid.NewString()
		s.isInitiator = false
		s.keys = NewKeyManager(opts.Crypto, key)

	case opts.Bridge != "":
		s.bridge = opts.Bridge
		s.clientID = uuid.NewString()
		s.isInitiator = true
		s.keys = NewKeyManager(opts.Crypto, nil)

	default:
		return nil, ErrMissingInitialization
	}

	s.transport = NewTransport(log, s.clientID, cfg.Debug.QueueCapacity, cfg.Debug.DialTimeout())
	if s.handshakeTopic != "" && !s.connected {
		s.transport.AddTopic(s.handshakeTopic)
	}

	return s, nil
}

// ClientID returns this process's relay topic / peer identifier.
func (s *Session) ClientID() string { return s.clientID }

// Open dials the relay bridge and starts the receive loop. It blocks
// until the socket is open.
func (s *Session) Open(ctx context.Context) error {
	if err := s.transport.Open(ctx, s.bridge); err != nil {
		return err
	}
	s.Go("receive-loop", s.receiveLoop)
	return nil
}

// Close tears down the relay connection and background goroutines. There
// is no automatic reconnect: the socket is single-shot.
func (s *Session) Close() error {
	err := s.transport.Close()
	s.Halt()
	return err
}

// On registers cb to fire on every dispatch of event: "connect",
// "disconnect", "session_update", "call_request", "response:<id>", or any
// inbound RPC method name.
func (s *Session) On(event string, cb EventCallback) {
	s.dispatcher.On(event, cb)
}

func (s *Session) outboundTopic() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.peerID != "" {
		return s.peerID
	}
	return s.handshakeTopic
}

func (s *Session) send(req Request, topic string) error {
	envelope, err := sealPayload(s.crypto, req, s.keys.Key())
	if err != nil {
		return err
	}
	return s.transport.Send(Frame{Topic: topic, Type: frameTypePub, Payload: string(envelope)})
}

func (s *Session) sendResponse(resp Response, topic string, key []byte) error {
	envelope, err := sealPayload(s.crypto, resp, key)
	if err != nil {
		return err
	}
	return s.transport.Send(Frame{Topic: topic, Type: frameTypePub, Payload: string(envelope)})
}

func (s *Session) snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Snapshot{
		Connected:      s.connected,
		Bridge:         s.bridge,
		Key:            hex.EncodeToString(s.keys.Key()),
		ClientID:       s.clientID,
		PeerID:         s.peerID,
		ClientMeta:     s.clientMeta,
		PeerMeta:       s.peerMeta,
		HandshakeID:    s.handshakeID,
		HandshakeTopic: s.handshakeTopic,
		ChainID:        s.chainID,
		Accounts:       s.accounts,
	}
}

func (s *Session) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.snapshot()); err != nil {
		s.log.Warningf("failed to persist session: %v", err)
	}
}

func (s *Session) erase() {
	if s.store == nil {
		return
	}
	if err := s.store.Erase(); err != nil {
		s.log.Warningf("failed to erase session: %v", err)
	}
}

// IsConnected reports whether the session has completed its handshake
// and not since been torn down.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// IsPending reports whether a handshake has been initiated but not yet
// approved.
func (s *Session) IsPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handshakeTopic != "" && !s.connected
}

// URI formats the handshake URI for this (dApp-side, pending) session.
func (s *Session) URI() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FormatURI(HandshakeURI{
		HandshakeTopic: s.handshakeTopic,
		Bridge:         s.bridge,
		Key:            hex.EncodeToString(s.keys.Key()),
	})
}

// CreateSession generates a key and handshakeTopic and sends
// wc_sessionRequest. It is the dApp-side entry point into the handshake
// and requires a fresh session: not connected and not already pending.
func (s *Session) CreateSession() error {
	s.mu.Lock()
	if s.connected || s.handshakeTopic != "" {
		s.mu.Unlock()
		return fmt.Errorf("%w: session already started", ErrPreconditionViolation)
	}
	key, err := s.crypto.GenerateKey()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.keys.SetKey(key)
	s.handshakeTopic = uuid.NewString()
	s.mu.Unlock()

	req, err := BuildRequest("wc_sessionRequest", []sessionRequestParams{{
		PeerID:   s.clientID,
		PeerMeta: s.clientMeta,
	}})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.handshakeID = req.ID
	s.mu.Unlock()

	if err := s.send(req, s.handshakeTopic); err != nil {
		return err
	}
	s.registerPending(req.ID)
	s.dispatcher.once(eventKeyForResponse(req.ID), s.handleSessionRequestResponse)
	s.persist()
	return nil
}

func (s *Session) handleSessionRequestResponse(_ string, payload interface{}) {
	s.unregisterPending(payload)
	resp, ok := payload.(*Response)
	if !ok {
		return
	}

	var result sessionApprovalResult
	if err := resultOrError(resp, &result); err != nil {
		s.dispatcher.Dispatch("disconnect", err)
		return
	}

	s.mu.Lock()
	if result.PeerID != "" {
		s.peerID = result.PeerID
		s.peerMeta = result.PeerMeta
	}
	if !result.Approved {
		s.connected = false
		s.mu.Unlock()
		s.erase()
		s.dispatcher.Dispatch("disconnect", result)
		return
	}
	s.chainID = result.ChainID
	s.accounts = result.Accounts
	s.connected = true
	handshakeTopic := s.handshakeTopic
	s.mu.Unlock()

	// handshakeTopic is publicly QR-coded and must not stay in the
	// active-topic set once peerId is known and the session is approved.
	s.transport.RemoveTopic(handshakeTopic)

	s.persist()
	s.dispatcher.Dispatch("connect", result)
}

// ApproveSession is the wallet-side acceptance of an inbound
// wc_sessionRequest: it replies to handshakeId with the chosen chain and
// accounts, and marks the session connected. Requires ¬connected.
func (s *Session) ApproveSession(status SessionStatus) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return fmt.Errorf("%w: already connected", ErrPreconditionViolation)
	}
	if s.handshakeID == 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: no pending handshake", ErrPreconditionViolation)
	}
	handshakeID := s.handshakeID
	peerID := s.peerID
	s.chainID = status.ChainID
	s.accounts = status.Accounts
	s.connected = true
	// handshakeTopic is publicly QR-coded and must not stay in the
	// active-topic set once peerId is known and the session is approved.
	handshakeTopic := s.handshakeTopic
	s.mu.Unlock()

	s.transport.RemoveTopic(handshakeTopic)

	resp := Response{
		ID:      handshakeID,
		JSONRPC: jsonrpcVersion,
	}
	result := sessionApprovalResult{
		Approved: true,
		ChainID:  status.ChainID,
		Accounts: status.Accounts,
		PeerID:   s.clientID,
		PeerMeta: s.clientMeta,
	}
	raw, err := marshalResult(result)
	if err != nil {
		return err
	}
	resp.Result = raw

	if err := s.sendResponse(resp, peerID, s.keys.Key()); err != nil {
		return err
	}
	s.persist()
	s.dispatcher.Dispatch("connect", result)
	return nil
}

// RejectSession is the wallet-side refusal of an inbound
// wc_sessionRequest: it replies to handshakeId with approved=false and
// erases any persisted snapshot. Requires ¬connected.
func (s *Session) RejectSession(message string) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return fmt.Errorf("%w: already connected", ErrPreconditionViolation)
	}
	if s.handshakeID == 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: no pending handshake", ErrPreconditionViolation)
	}
	handshakeID := s.handshakeID
	peerID := s.peerID
	s.mu.Unlock()

	resp := Response{ID: handshakeID, JSONRPC: jsonrpcVersion}
	raw, err := marshalResult(sessionApprovalResult{Approved: false, Message: message})
	if err != nil {
		return err
	}
	resp.Result = raw

	if err := s.sendResponse(resp, peerID, s.keys.Key()); err != nil {
		return err
	}
	s.erase()
	s.dispatcher.Dispatch("disconnect", message)
	return nil
}

// UpdateSession sends a wc_sessionUpdate request with a new chain/account
// set. Requires connected.
func (s *Session) UpdateSession(status SessionStatus) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return fmt.Errorf("%w: not connected", ErrPreconditionViolation)
	}
	s.chainID = status.ChainID
	s.accounts = status.Accounts
	peerID := s.peerID
	s.mu.Unlock()

	req, err := BuildRequest("wc_sessionUpdate", []sessionUpdateParams{{
		Approved: true,
		ChainID:  status.ChainID,
		Accounts: status.Accounts,
	}})
	if err != nil {
		return err
	}
	if err := s.send(req, peerID); err != nil {
		return err
	}
	s.persist()
	s.dispatcher.Dispatch("session_update", status)
	return nil
}

// KillSession sends a rejecting wc_sessionUpdate, tears down the session
// locally and erases any persisted snapshot. Requires connected.
func (s *Session) KillSession(message string) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return fmt.Errorf("%w: not connected", ErrPreconditionViolation)
	}
	peerID := s.peerID
	s.connected = false
	s.mu.Unlock()

	req, err := BuildRequest("wc_sessionUpdate", []sessionUpdateParams{{
		Approved: false,
		Message:  message,
	}})
	if err == nil {
		if sendErr := s.send(req, peerID); sendErr != nil {
			s.log.Warningf("failed to send kill notice: %v", sendErr)
		}
	}
	s.erase()
	s.failPending()
	s.dispatcher.Dispatch("disconnect", message)
	return nil
}

// SendTransaction tunnels an eth_sendTransaction call over the relay and
// blocks for the peer's result. Requires connected.
func (s *Session) SendTransaction(ctx context.Context, params interface{}) (interface{}, error) {
	return s.call(ctx, "eth_sendTransaction", params)
}

// SignMessage tunnels an eth_sign call over the relay and blocks for the
// peer's result. Requires connected.
func (s *Session) SignMessage(ctx context.Context, params interface{}) (interface{}, error) {
	return s.call(ctx, "eth_sign", params)
}

// SignTypedData tunnels an eth_signTypedData call over the relay and
// blocks for the peer's result. Requires connected.
func (s *Session) SignTypedData(ctx context.Context, params interface{}) (interface{}, error) {
	return s.call(ctx, "eth_signTypedData", params)
}

// Call tunnels an arbitrary JSON-RPC method over the relay and blocks for
// the peer's result. Requires connected.
func (s *Session) Call(ctx context.Context, method string, params interface{}) (interface{}, error) {
	return s.call(ctx, method, params)
}

func (s *Session) call(ctx context.Context, method string, params interface{}) (interface{}, error) {
	s.mu.RLock()
	connected := s.connected
	peerID := s.peerID
	s.mu.RUnlock()
	if !connected {
		return nil, fmt.Errorf("%w: not connected", ErrPreconditionViolation)
	}

	req, err := BuildRequest(method, params)
	if err != nil {
		return nil, err
	}

	respCh := make(chan *Response, 1)
	s.dispatcher.once(eventKeyForResponse(req.ID), func(_ string, payload interface{}) {
		if resp, ok := payload.(*Response); ok {
			select {
			case respCh <- resp:
			default:
			}
		}
	})
	s.registerPending(req.ID)
	defer s.unregisterPending(nil)

	if err := s.send(req, peerID); err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.cfg.Debug.CallTimeout())
	defer timer.Stop()

	select {
	case resp := <-respCh:
		if resp.Error != nil && resp.Error.Code == terminatedErrorCode {
			return nil, fmt.Errorf("%w: session terminated", ErrPreconditionViolation)
		}
		var result interface{}
		if err := resultOrError(resp, &result); err != nil {
			return nil, err
		}
		return result, nil
	case <-timer.C:
		s.dispatcher.Off(eventKeyForResponse(req.ID))
		return nil, ErrTimeout
	case <-ctx.Done():
		s.dispatcher.Off(eventKeyForResponse(req.ID))
		return nil, ctx.Err()
	case <-s.HaltCh():
		return nil, fmt.Errorf("wcbridge: session closed")
	}
}

func (s *Session) registerPending(id int64) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pending[id] = true
}

func (s *Session) unregisterPending(payload interface{}) {
	resp, ok := payload.(*Response)
	if !ok {
		return
	}
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	delete(s.pending, resp.ID)
}

// failPending fails every in-flight correlator with a synthetic
// terminated-session error response, so no caller of Call/SendTransaction
// blocks forever past a KillSession or rejecting wc_sessionUpdate.
func (s *Session) failPending() {
	s.pendingMu.Lock()
	ids := make([]int64, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.pending = make(map[int64]bool)
	s.pendingMu.Unlock()

	for _, id := range ids {
		s.dispatcher.Dispatch(eventKeyForResponse(id), &Response{
			ID:      id,
			JSONRPC: jsonrpcVersion,
			Error:   &ResponseError{Code: terminatedErrorCode, Message: "session terminated"},
		})
	}
}

func (s *Session) receiveLoop() {
	ctx := context.Background()
	for {
		select {
		case <-s.HaltCh():
			return
		default:
		}

		frame, err := s.transport.Receive(ctx)
		if err != nil {
			s.log.Errorf("receive failed: %v", err)
			return
		}
		if frame.Payload == "" {
			continue
		}
		if err := s.handleFrame(frame); err != nil {
			s.log.Errorf("receive failed: %v", err)
			s.dispatcher.Dispatch("disconnect", err)
			return
		}
	}
}

// handleFrame decrypts and classifies one inbound frame. Malformed JSON
// in the inner envelope is as fatal to the receive path as malformed
// JSON in the outer frame (see Transport.readPump): it returns
// ErrTransportProtocolError and receiveLoop stops rather than risk
// desyncing the peer on a corrupted wire.
func (s *Session) handleFrame(frame Frame) error {
	plaintext, err := s.crypto.Decrypt([]byte(frame.Payload), s.keys.Key())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportProtocolError, err)
	}
	if plaintext == nil {
		s.log.Debugf("dropping frame that did not authenticate under current key")
		return nil
	}

	gotReq, gotResp, err := ParseIncoming(plaintext)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportProtocolError, err)
	}
	switch {
	case gotReq != nil:
		s.handleRequest(*gotReq)
	case gotResp != nil:
		s.dispatcher.Dispatch(eventKeyForResponse(gotResp.ID), gotResp)
	}
	return nil
}

func (s *Session) handleRequest(req Request) {
	switch req.Method {
	case "wc_sessionRequest":
		s.handleSessionRequest(req)
	case "wc_sessionUpdate":
		s.handleSessionUpdate(req)
	case "wc_exchangeKey":
		s.handleExchangeKeyRequest(req)
	default:
		s.dispatcher.Dispatch(req.Method, req)
	}
}

func (s *Session) handleSessionRequest(req Request) {
	var params []sessionRequestParams
	if err := unmarshalParams(req.Params, &params); err != nil || len(params) == 0 {
		s.log.Warningf("malformed wc_sessionRequest: %v", err)
		return
	}

	s.mu.Lock()
	s.handshakeID = req.ID
	s.peerID = params[0].PeerID
	s.peerMeta = params[0].PeerMeta
	s.mu.Unlock()

	s.dispatcher.Dispatch("wc_sessionRequest", req)
	s.beginKeyExchange()
}

// beginKeyExchange is the key-exchange initiator side of the swap: the
// party that just received an inbound wc_sessionRequest triggers it,
// rather than the sender of wc_sessionRequest.
func (s *Session) beginKeyExchange() {
	nextKey, err := s.keys.BeginSwap()
	if err != nil {
		s.log.Warningf("key exchange: %v", err)
		return
	}

	s.mu.RLock()
	peerID := s.peerID
	s.mu.RUnlock()

	req, err := BuildRequest("wc_exchangeKey", []exchangeKeyParams{{
		PeerID:   s.clientID,
		PeerMeta: s.clientMeta,
		NextKey:  hex.EncodeToString(nextKey),
	}})
	if err != nil {
		s.log.Warningf("key exchange: %v", err)
		s.keys.AbortSwap()
		return
	}

	s.dispatcher.once(eventKeyForResponse(req.ID), s.handleExchangeKeyResponse)
	if err := s.send(req, peerID); err != nil {
		s.log.Warningf("key exchange: failed to send wc_exchangeKey: %v", err)
		s.dispatcher.Off(eventKeyForResponse(req.ID))
		s.keys.AbortSwap()
	}
}

func (s *Session) handleExchangeKeyResponse(_ string, payload interface{}) {
	resp, ok := payload.(*Response)
	if !ok {
		return
	}
	var ok2 bool
	if err := resultOrError(resp, &ok2); err != nil {
		s.log.Warningf("key exchange: peer rejected wc_exchangeKey: %v", err)
		s.keys.AbortSwap()
		return
	}
	// Swap only after the ack has been successfully decrypted.
	s.keys.CompleteSwap()
}

func (s *Session) handleExchangeKeyRequest(req Request) {
	var params []exchangeKeyParams
	if err := unmarshalParams(req.Params, &params); err != nil || len(params) == 0 {
		s.log.Warningf("malformed wc_exchangeKey: %v", err)
		return
	}

	s.mu.Lock()
	if s.peerID == "" {
		s.peerID = params[0].PeerID
		s.peerMeta = params[0].PeerMeta
	}
	peerID := s.peerID
	s.mu.Unlock()

	if err := s.keys.StageIncoming(params[0].NextKey); err != nil {
		resp := Response{ID: req.ID, JSONRPC: jsonrpcVersion, Error: &ResponseError{Code: -1, Message: err.Error()}}
		_ = s.sendResponse(resp, peerID, s.keys.Key())
		return
	}

	raw, err := marshalResult(true)
	if err != nil {
		s.log.Warningf("key exchange: %v", err)
		return
	}
	resp := Response{ID: req.ID, JSONRPC: jsonrpcVersion, Result: raw}
	// The ack is sealed under the still-current (pre-swap) key: it is
	// the last frame under the old key.
	if err := s.sendResponse(resp, peerID, s.keys.Key()); err != nil {
		s.log.Warningf("key exchange: failed to send ack: %v", err)
		return
	}
	s.keys.CompleteSwap()
}

func (s *Session) handleSessionUpdate(req Request) {
	var params []sessionUpdateParams
	if err := unmarshalParams(req.Params, &params); err != nil || len(params) == 0 {
		s.log.Warningf("malformed wc_sessionUpdate: %v", err)
		return
	}
	p := params[0]

	s.mu.Lock()
	if !p.Approved {
		s.connected = false
		s.mu.Unlock()
		s.erase()
		s.failPending()
		s.dispatcher.Dispatch("disconnect", p)
		return
	}

	wasConnected := s.connected
	s.chainID = p.ChainID
	s.accounts = p.Accounts
	s.connected = true
	s.mu.Unlock()

	s.persist()
	if wasConnected {
		s.dispatcher.Dispatch("session_update", p)
	} else {
		s.dispatcher.Dispatch("connect", p)
	}
}
