package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

var (
	ErrDuplicateView = errors.New("admin: view url already registered")
	ErrInvalidURL    = errors.New("admin: invalid view url")
)

type ViewInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

// View is anything the registry can mount under /admin/<url>.
type View interface {
	Info() ViewInfo
	Register(rg *gin.RouterGroup)
}

type MenuCategory struct {
	Name  string     `json:"name"`
	Views []ViewInfo `json:"views"`
}

// Registry is the host's plugin registry for admin views.
type Registry struct {
	mu    sync.RWMutex
	views []View
	urls  map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{urls: make(map[string]struct{})}
}

func (r *Registry) Add(v View) error {
	info := v.Info()
	url := strings.Trim(info.URL, "/")

	if url == "" || url == "menu" || strings.ContainsAny(url, "/:*") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, info.URL)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.urls[url]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateView, url)
	}

	r.urls[url] = struct{}{}
	r.views = append(r.views, v)
	return nil
}

// Menu groups views by category, in registration order.
func (r *Registry) Menu() []MenuCategory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []MenuCategory
	index := make(map[string]int)

	for _, v := range r.views {
		info := v.Info()
		info.URL = strings.Trim(info.URL, "/")

		i, ok := index[info.Category]
		if !ok {
			i = len(out)
			index[info.Category] = i
			out = append(out, MenuCategory{Name: info.Category})
		}
		out[i].Views = append(out[i].Views, info)
	}
	return out
}

// Mount attaches every registered view plus GET /menu to rg.
func (r *Registry) Mount(rg *gin.RouterGroup) {
	rg.GET("/menu", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"categories": r.Menu()})
	})

	r.mu.RLock()
	views := append([]View(nil), r.views...)
	r.mu.RUnlock()

	for _, v := range views {
		v.Register(rg.Group("/" + strings.Trim(v.Info().URL, "/")))
	}
}
