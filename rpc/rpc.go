package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/cardroom/logger"
	"github.com/wfunc/cardroom/models"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr. Services are registered on the server's own
// registry, never the package default.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpc.NewServer(),
	}, nil
}

// Register exposes rcvr's exported methods under its type name.
func (s *Server) Register(rcvr interface{}) error {
	return s.rpc.Register(rcvr)
}

// Addr is the bound listener address.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AccountLookup finds an account by login or id. services.AccountService
// satisfies it.
type AccountLookup interface {
	Get(ctx context.Context, loginOrID string) (*models.Account, error)
}

// StatsService exposes account statistics to internal tools.
type StatsService struct {
	accounts AccountLookup
	timeout  time.Duration
}

func NewStatsService(accounts AccountLookup) *StatsService {
	return &StatsService{accounts: accounts, timeout: 5 * time.Second}
}

// GetStatsArgs names the account by login or id.
type GetStatsArgs struct {
	Account string
}

type GetStatsReply struct {
	AccountID   string
	DisplayName string
	Stats       models.Stats
}

// GetAccountStats follows the net/rpc method shape: exported receiver and
// arguments, pointer reply, error result.
func (ss *StatsService) GetAccountStats(args *GetStatsArgs, reply *GetStatsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), ss.timeout)
	defer cancel()

	account, err := ss.accounts.Get(ctx, args.Account)
	if err != nil {
		return err
	}
	reply.AccountID = account.ID
	reply.DisplayName = account.DisplayName
	reply.Stats = account.Stats
	return nil
}
