package common

import (
	"net"

	"github.com/gin-gonic/gin"
	crew "ropeaccess.com/crewtrack/core"
	"ropeaccess.com/crewtrack/worksession/core"
	"ropeaccess.com/crewtrack/worksession/store"
)

// StoreProvider binds a request to the store of the company it is addressed to.
// The returned release func must be called once the request is done.
type StoreProvider interface {
	Store(c *gin.Context) (core.Store, func(), error)
}

// DatabaseProvider picks the company schema from the request host.
type DatabaseProvider struct {
	Dm *crew.DatabaseManager
}

func GetHostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func (p *DatabaseProvider) Store(c *gin.Context) (core.Store, func(), error) {
	schema := p.Dm.SchemaForHost(GetHostname(c.Request.Host))
	db, conn, err := p.Dm.GetDB(c.Request.Context(), schema)
	if err != nil {
		return nil, nil, err
	}
	return store.NewGormStore(db), func() { conn.Close() }, nil
}

// StaticProvider serves every request from one store.
type StaticProvider struct {
	Backing core.Store
}

func (p *StaticProvider) Store(*gin.Context) (core.Store, func(), error) {
	return p.Backing, func() {}, nil
}

type Handler struct {
	Provider StoreProvider
	Catalog  *core.ReasonCatalog
}

// Manager returns a lifecycle manager bound to the request's store.
func (h *Handler) Manager(c *gin.Context) (*core.Manager, func(), error) {
	s, release, err := h.Provider.Store(c)
	if err != nil {
		return nil, nil, err
	}
	return core.NewManager(s, h.Catalog), release, nil
}
