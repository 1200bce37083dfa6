package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"spool/internal/daemon"
	"spool/internal/history"
	"spool/internal/logging"
	"spool/internal/logs"
	"spool/internal/services"
	"spool/internal/services/aria2"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	socketPath string
	daemon     *daemon.Daemon
	logger     *slog.Logger
	listener   net.Listener
	rpcServer  *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer binds the control socket and registers the RPC service. Any
// stale socket file at path is replaced.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	listener, err := listenUnix(path)
	if err != nil {
		return nil, err
	}

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Spool", &service{daemon: d, logger: logger, ctx: ctx}); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		socketPath: path,
		daemon:     d,
		logger:     logger,
		listener:   listener,
		rpcServer:  rpcServer,
		ctx:        serverCtx,
		cancel:     cancel,
	}, nil
}

func listenUnix(path string) (net.Listener, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	return listener, nil
}

// Serve accepts RPC connections in the background until Close or context
// cancellation.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.socketPath))
	s.wg.Add(1)
	go s.acceptLoop()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "control clients may fail to connect"),
				logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
			continue
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
}

// Close stops accepting connections, waits for in-flight requests, and
// removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.socketPath); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.socketPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale control socket may confuse future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun spool stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

// reqCtx tags one RPC invocation with a correlation identifier so the log
// lines it triggers can be tied back together.
func (s *service) reqCtx() context.Context {
	return services.WithRequestID(s.ctx, uuid.NewString())
}

func fromSnapshot(snap *aria2.Snapshot) DownloadItem {
	item := DownloadItem{
		GID:             snap.GID,
		Name:            snap.Name,
		Status:          string(snap.Status),
		TotalLength:     snap.TotalLength,
		CompletedLength: snap.CompletedLength,
		DownloadSpeed:   snap.DownloadSpeed,
		UploadSpeed:     snap.UploadSpeed,
		Connections:     snap.Connections,
		Progress:        snap.Progress(),
		ErrorMessage:    snap.ErrorMessage,
	}
	if eta := snap.ETA(); eta > 0 {
		item.ETASeconds = int64(eta / time.Second)
	}
	return item
}

func fromRecord(rec *history.Record) HistoryRecord {
	return HistoryRecord{
		GID:        rec.GID,
		Name:       rec.Name,
		Status:     string(rec.Status),
		SizeBytes:  rec.SizeBytes,
		Error:      rec.Error,
		FinishedAt: rec.FinishedAt,
		Files:      append([]string(nil), rec.Files...),
	}
}

func fromRecords(records []*history.Record) []HistoryRecord {
	out := make([]HistoryRecord, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		out = append(out, fromRecord(rec))
	}
	return out
}

func (s *service) Ping(_ PingRequest, resp *PingResponse) error {
	resp.Pong = true
	resp.PID = os.Getpid()
	return nil
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.TrackedCards = status.TrackedCards
	resp.HistoryDBPath = status.HistoryDBPath
	resp.LockPath = status.LockPath
	resp.LogPath = status.LogPath
	if !status.StartedAt.IsZero() {
		resp.UptimeSeconds = int64(time.Since(status.StartedAt).Seconds())
	}
	if len(status.HistoryCounts) > 0 {
		resp.HistoryCounts = make(map[string]int, len(status.HistoryCounts))
		for state, count := range status.HistoryCounts {
			resp.HistoryCounts[string(state)] = count
		}
	}
	if status.Engine != nil {
		resp.Engine = &EngineStatus{
			Reachable:     status.Engine.Reachable,
			Version:       status.Engine.Version,
			Active:        status.Engine.Active,
			Waiting:       status.Engine.Waiting,
			Stopped:       status.Engine.Stopped,
			DownloadSpeed: status.Engine.DownloadSpeed,
			UploadSpeed:   status.Engine.UploadSpeed,
		}
	}
	return nil
}

func (s *service) Downloads(_ DownloadsRequest, resp *DownloadsResponse) error {
	snaps, err := s.daemon.Downloads(s.ctx)
	if err != nil {
		return err
	}
	resp.Items = make([]DownloadItem, 0, len(snaps))
	for _, snap := range snaps {
		if snap == nil {
			continue
		}
		resp.Items = append(resp.Items, fromSnapshot(snap))
	}
	return nil
}

func (s *service) Add(req AddRequest, resp *AddResponse) error {
	ctx := s.reqCtx()
	logging.WithContext(ctx, s.log()).Debug("add requested", logging.Int("uri_count", len(req.URIs)))
	gid, err := s.daemon.Add(ctx, req.URIs, req.Dir)
	if err != nil {
		return err
	}
	resp.GID = gid
	return nil
}

func (s *service) Pause(req PauseRequest, _ *PauseResponse) error {
	return s.daemon.Pause(s.ctx, req.GID)
}

func (s *service) Unpause(req UnpauseRequest, _ *UnpauseResponse) error {
	return s.daemon.Unpause(s.ctx, req.GID)
}

func (s *service) Remove(req RemoveRequest, _ *RemoveResponse) error {
	return s.daemon.Remove(s.ctx, req.GID)
}

func (s *service) PauseAll(_ PauseAllRequest, _ *PauseAllResponse) error {
	return s.daemon.PauseAll(s.ctx)
}

func (s *service) UnpauseAll(_ UnpauseAllRequest, _ *UnpauseAllResponse) error {
	return s.daemon.UnpauseAll(s.ctx)
}

func (s *service) HistoryPage(req HistoryPageRequest, resp *HistoryPageResponse) error {
	records, total, err := s.daemon.HistoryPage(s.ctx, req.Offset, req.Limit)
	if err != nil {
		return err
	}
	resp.Records = fromRecords(records)
	resp.Total = total
	return nil
}

func (s *service) HistorySearch(req HistorySearchRequest, resp *HistorySearchResponse) error {
	records, total, err := s.daemon.HistorySearch(s.ctx, req.Term, req.Offset, req.Limit)
	if err != nil {
		return err
	}
	resp.Records = fromRecords(records)
	resp.Total = total
	return nil
}

func (s *service) HistoryClear(_ HistoryClearRequest, resp *HistoryClearResponse) error {
	ctx := s.reqCtx()
	logging.WithContext(ctx, s.log()).Debug("history clear requested")
	removed, err := s.daemon.ClearHistory(ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}
