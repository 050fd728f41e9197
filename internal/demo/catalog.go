package demo

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/junioryono/wired"
	"github.com/junioryono/wired/guards"
)

// Product is a catalog entry.
type Product struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// CreateProduct is the body of POST /products.
type CreateProduct struct {
	Name  string `json:"name" validate:"required,max=64"`
	Price int    `json:"price" validate:"gte=0"`
}

// ListQuery filters GET /products.
type ListQuery struct {
	Search string `query:"q"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// ItemQuery selects one product.
type ItemQuery struct {
	ID int `query:"id" validate:"required,min=1"`
}

// SeedToken provides the initial products.
const SeedToken = wired.Name("CATALOG_SEED")

// ProductStore keeps products in memory.
type ProductStore struct {
	Seed   []Product    `inject:"CATALOG_SEED"`
	Logger wired.Logger `inject:"APP_LOGGER"`

	once     sync.Once
	mu       sync.RWMutex
	products map[int]Product
	nextID   int
}

var ProductStoreClass = wired.Injectable[ProductStore]()

func (s *ProductStore) load() {
	s.once.Do(func() {
		s.products = make(map[int]Product, len(s.Seed))
		for _, p := range s.Seed {
			s.products[p.ID] = p
			s.nextID = max(s.nextID, p.ID)
		}
	})
}

// List returns the products whose name contains search, by id.
func (s *ProductStore) List(search string, limit int) []Product {
	s.load()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *ProductStore) Get(id int) (Product, bool) {
	s.load()
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *ProductStore) Add(in CreateProduct) Product {
	s.load()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p := Product{ID: s.nextID, Name: in.Name, Price: in.Price}
	s.products[p.ID] = p
	s.Logger.Info("product created", "id", p.ID)
	return p
}

// ProductsController serves /products.
type ProductsController struct {
	Store *ProductStore `inject:""`
}

var ProductsControllerClass = wired.Controller[ProductsController]("products",
	wired.Get("", "List", wired.UsePipes(
		wired.Query(wired.SchemaOf[ListQuery]()),
		PaginationPipeClass,
	)),
	wired.Get("item", "Show", wired.UsePipes(wired.Query(wired.SchemaOf[ItemQuery]()))),
	wired.Post("", "Create",
		wired.UseGuards(guards.JWTGuardClass, guards.RolesGuardClass),
		wired.SetMetadata(guards.RolesKey, []string{"admin"}),
		wired.UsePipes(wired.Body(wired.SchemaOf[CreateProduct]())),
	),
)

func (c *ProductsController) List(q *ListQuery) []Product {
	return c.Store.List(q.Search, q.Limit)
}

func (c *ProductsController) Show(q *ItemQuery) (Product, error) {
	p, ok := c.Store.Get(q.ID)
	if !ok {
		return Product{}, wired.NotFound(fmt.Sprintf("product %d", q.ID))
	}
	return p, nil
}

func (c *ProductsController) Create(in *CreateProduct) Product {
	return c.Store.Add(*in)
}

// CatalogModule provides the product store and controller.
func CatalogModule(seed []Product) *wired.Module {
	return wired.NewModule("catalog",
		wired.Providers(
			wired.UseFactory(SeedToken, func(...any) (any, error) {
				return append([]Product(nil), seed...), nil
			}),
			ProductStoreClass,
			PaginationPipeClass,
		),
		wired.Controllers(ProductsControllerClass),
		wired.Exports(ProductStoreClass),
	)
}
