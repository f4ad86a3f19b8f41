package server

import (
	"net/url"

	"github.com/m3047/trualiasd/internal/localrpc"
	"github.com/m3047/trualiasd/internal/trace"
)

// RegisterRPC wires this Server's operations onto a localrpc.Server, the
// same "AliasResolve"/"DomaininfoClear" registration the teacher does
// against localrpc.DefaultServer, adapted to this engine's two
// operator-facing actions: an out-of-band resolve (for diagnosing why
// an address does or doesn't match, without going through any of the
// three network protocols) and a forced config reload.
func (s *Server) RegisterRPC(rpc *localrpc.Server) {
	rpc.Register("Resolve", s.resolveRPC)
	rpc.Register("ReloadConfig", s.reloadConfigRPC)
}

func (s *Server) resolveRPC(tr *trace.Trace, req url.Values) (url.Values, error) {
	address := req.Get("Address")
	domain := req.Get("Domain")

	cfg := s.Config.Load()
	account := resolveWithProcessor(cfg, s.lookupProcessor(cfg), address, domain)

	v := url.Values{}
	if account != "" {
		v.Set("Account", account)
	}
	return v, nil
}

func (s *Server) reloadConfigRPC(tr *trace.Trace, req url.Values) (url.Values, error) {
	s.Reload()
	return nil, nil
}
