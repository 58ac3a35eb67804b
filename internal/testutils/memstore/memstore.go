// Package memstore is an in-memory implementation of the catalog repositories
// for service and handler tests. Transactions snapshot the whole store and
// restore it when the transaction function fails.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"product-service/internal/domain/catalog"
)

type txKey struct{}

type state struct {
	nextID      int64
	categories  map[int64]catalog.Category
	products    map[int64]catalog.Product
	tags        map[int64]catalog.Tag
	productTags map[int64]catalog.ProductTag
	images      map[int64]catalog.ProductImage
}

func newState() state {
	return state{
		categories:  map[int64]catalog.Category{},
		products:    map[int64]catalog.Product{},
		tags:        map[int64]catalog.Tag{},
		productTags: map[int64]catalog.ProductTag{},
		images:      map[int64]catalog.ProductImage{},
	}
}

func (s state) clone() state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.tags {
		c.tags[k] = v
	}
	for k, v := range s.productTags {
		c.productTags[k] = v
	}
	for k, v := range s.images {
		c.images[k] = v
	}
	return c
}

// Store holds all catalog rows in memory
type Store struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	data     state
	failures map[string]error
}

// New creates an empty store
func New() *Store {
	return &Store{data: newState(), failures: map[string]error{}}
}

// Repositories returns the repository set backed by s
func (s *Store) Repositories() *catalog.Repositories {
	return &catalog.Repositories{
		Categories:  categoryRepo{s},
		Products:    productRepo{s},
		Tags:        tagRepo{s},
		ProductTags: productTagRepo{s},
		Images:      imageRepo{s},
		Tx:          s,
	}
}

// FailOn makes the named operation (for example "images.Create") return err
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// WithinTx serialises transactions and rolls the store back when fn fails
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Counts reports how many rows each table holds
func (s *Store) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"categories":     len(s.data.categories),
		"products":       len(s.data.products),
		"tags":           len(s.data.tags),
		"product_tags":   len(s.data.productTags),
		"product_images": len(s.data.images),
	}
}

func (s *Store) lock(op string) (func(), error) {
	s.mu.Lock()
	if err := s.failures[op]; err != nil {
		s.mu.Unlock()
		return func() {}, err
	}
	return s.mu.Unlock, nil
}

func (s *Store) id() int64 {
	s.data.nextID++
	return s.data.nextID
}

// --- categories ---

type categoryRepo struct{ s *Store }

func (r categoryRepo) Create(_ context.Context, category *catalog.Category) error {
	unlock, err := r.s.lock("categories.Create")
	defer unlock()
	if err != nil {
		return err
	}
	for _, c := range r.s.data.categories {
		if c.Name == category.Name {
			return fmt.Errorf("%w: %s", catalog.ErrCategoryExists, category.Name)
		}
	}
	category.ID = r.s.id()
	category.CreatedAt = time.Now()
	r.s.data.categories[category.ID] = *category
	return nil
}

func (r categoryRepo) GetByID(_ context.Context, id int64) (*catalog.Category, error) {
	unlock, err := r.s.lock("categories.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	c, ok := r.s.data.categories[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", catalog.ErrCategoryNotFound, id)
	}
	return &c, nil
}

func (r categoryRepo) GetByName(_ context.Context, name string) (*catalog.Category, error) {
	unlock, err := r.s.lock("categories.GetByName")
	defer unlock()
	if err != nil {
		return nil, err
	}
	if c, ok := r.s.categoryByName(name); ok {
		return &c, nil
	}
	return nil, fmt.Errorf("%w: %s", catalog.ErrCategoryNotFound, name)
}

func (r categoryRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	unlock, err := r.s.lock("categories.ExistsByName")
	defer unlock()
	if err != nil {
		return false, err
	}
	_, ok := r.s.categoryByName(name)
	return ok, nil
}

func (r categoryRepo) List(_ context.Context) ([]*catalog.Category, error) {
	unlock, err := r.s.lock("categories.List")
	defer unlock()
	if err != nil {
		return nil, err
	}
	result := make([]*catalog.Category, 0, len(r.s.data.categories))
	for _, c := range r.s.data.categories {
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r categoryRepo) Delete(_ context.Context, id int64) error {
	unlock, err := r.s.lock("categories.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.categories[id]; !ok {
		return fmt.Errorf("%w: id %d", catalog.ErrCategoryNotFound, id)
	}
	for _, p := range r.s.data.products {
		if p.CategoryID == id {
			return fmt.Errorf("%w: id %d", catalog.ErrCategoryNotEmpty, id)
		}
	}
	delete(r.s.data.categories, id)
	return nil
}

func (s *Store) categoryByName(name string) (catalog.Category, bool) {
	for _, c := range s.data.categories {
		if c.Name == name {
			return c, true
		}
	}
	return catalog.Category{}, false
}

// --- products ---

type productRepo struct{ s *Store }

func (r productRepo) Create(_ context.Context, product *catalog.Product) error {
	unlock, err := r.s.lock("products.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if err := r.s.checkProductWrite(product); err != nil {
		return err
	}
	product.ID = r.s.id()
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	product.CategoryName = r.s.data.categories[product.CategoryID].Name
	stored := *product
	stored.Tags = nil
	r.s.data.products[product.ID] = stored
	return nil
}

func (r productRepo) GetByID(_ context.Context, id int64) (*catalog.Product, error) {
	unlock, err := r.s.lock("products.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", catalog.ErrProductNotFound, id)
	}
	return r.s.projectProduct(p), nil
}

func (r productRepo) GetByName(_ context.Context, name string) (*catalog.Product, error) {
	unlock, err := r.s.lock("products.GetByName")
	defer unlock()
	if err != nil {
		return nil, err
	}
	for _, p := range r.s.data.products {
		if p.Name == name {
			return r.s.projectProduct(p), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, name)
}

func (r productRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	unlock, err := r.s.lock("products.ExistsByName")
	defer unlock()
	if err != nil {
		return false, err
	}
	for _, p := range r.s.data.products {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r productRepo) List(_ context.Context) ([]*catalog.Product, error) {
	unlock, err := r.s.lock("products.List")
	defer unlock()
	if err != nil {
		return nil, err
	}
	return r.s.selectProducts(func(catalog.Product) bool { return true }), nil
}

func (r productRepo) ListByCategory(_ context.Context, categoryName string) ([]*catalog.Product, error) {
	unlock, err := r.s.lock("products.ListByCategory")
	defer unlock()
	if err != nil {
		return nil, err
	}
	return r.s.selectProducts(func(p catalog.Product) bool {
		return r.s.data.categories[p.CategoryID].Name == categoryName
	}), nil
}

func (r productRepo) CountByCategory(_ context.Context, categoryID int64) (int, error) {
	unlock, err := r.s.lock("products.CountByCategory")
	defer unlock()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, p := range r.s.data.products {
		if p.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (r productRepo) Update(_ context.Context, product *catalog.Product) error {
	unlock, err := r.s.lock("products.Update")
	defer unlock()
	if err != nil {
		return err
	}
	existing, ok := r.s.data.products[product.ID]
	if !ok {
		return fmt.Errorf("%w: id %d", catalog.ErrProductNotFound, product.ID)
	}
	if err := r.s.checkProductWrite(product); err != nil {
		return err
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	product.CategoryName = r.s.data.categories[product.CategoryID].Name
	stored := *product
	stored.Tags = nil
	r.s.data.products[product.ID] = stored
	return nil
}

func (r productRepo) Delete(_ context.Context, id int64) error {
	unlock, err := r.s.lock("products.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.products[id]; !ok {
		return fmt.Errorf("%w: id %d", catalog.ErrProductNotFound, id)
	}
	delete(r.s.data.products, id)
	for k, pt := range r.s.data.productTags {
		if pt.ProductID == id {
			delete(r.s.data.productTags, k)
		}
	}
	for k, img := range r.s.data.images {
		if img.ProductID == id {
			delete(r.s.data.images, k)
		}
	}
	return nil
}

func (r productRepo) AdjustStock(_ context.Context, id int64, delta int) (*catalog.Product, error) {
	unlock, err := r.s.lock("products.AdjustStock")
	defer unlock()
	if err != nil {
		return nil, err
	}
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", catalog.ErrProductNotFound, id)
	}
	if p.StockQuantity+delta < 0 {
		return nil, fmt.Errorf("%w: product %d cannot change by %d", catalog.ErrInsufficientStock, id, delta)
	}
	p.StockQuantity += delta
	p.UpdatedAt = time.Now()
	r.s.data.products[id] = p
	return r.s.projectProduct(p), nil
}

func (r productRepo) SearchByTags(_ context.Context, filter catalog.TagFilter) ([]*catalog.Product, error) {
	unlock, err := r.s.lock("products.SearchByTags")
	defer unlock()
	if err != nil {
		return nil, err
	}
	if len(filter.Names) == 0 {
		return []*catalog.Product{}, nil
	}
	return r.s.selectProducts(func(p catalog.Product) bool {
		if filter.CategoryName != "" && r.s.data.categories[p.CategoryID].Name != filter.CategoryName {
			return false
		}
		names := r.s.tagNames(p.ID)
		matched := 0
		for _, want := range filter.Names {
			if slices.Contains(names, want) {
				matched++
			}
		}
		if filter.MatchAll {
			return matched == len(filter.Names)
		}
		return matched > 0
	}), nil
}

func (r productRepo) SearchByTagPattern(_ context.Context, pattern string) ([]*catalog.Product, error) {
	unlock, err := r.s.lock("products.SearchByTagPattern")
	defer unlock()
	if err != nil {
		return nil, err
	}
	pattern = strings.ToLower(pattern)
	return r.s.selectProducts(func(p catalog.Product) bool {
		for _, name := range r.s.tagNames(p.ID) {
			if strings.Contains(strings.ToLower(name), pattern) {
				return true
			}
		}
		return false
	}), nil
}

func (s *Store) checkProductWrite(product *catalog.Product) error {
	if _, ok := s.data.categories[product.CategoryID]; !ok {
		return fmt.Errorf("%w: id %d", catalog.ErrCategoryNotFound, product.CategoryID)
	}
	for _, p := range s.data.products {
		if p.Name == product.Name && p.ID != product.ID {
			return fmt.Errorf("%w: %s", catalog.ErrProductExists, product.Name)
		}
	}
	if product.StockQuantity < 0 {
		return fmt.Errorf("%w: stock quantity cannot be negative", catalog.ErrInvalidProduct)
	}
	return nil
}

func (s *Store) projectProduct(p catalog.Product) *catalog.Product {
	p.CategoryName = s.data.categories[p.CategoryID].Name
	p.Tags = nil
	return &p
}

func (s *Store) selectProducts(keep func(catalog.Product) bool) []*catalog.Product {
	result := make([]*catalog.Product, 0)
	for _, p := range s.data.products {
		if keep(p) {
			result = append(result, s.projectProduct(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (s *Store) tagNames(productID int64) []string {
	var names []string
	for _, pt := range s.data.productTags {
		if pt.ProductID == productID {
			names = append(names, s.data.tags[pt.TagID].Name)
		}
	}
	sort.Strings(names)
	return names
}

// --- tags ---

type tagRepo struct{ s *Store }

func (r tagRepo) Create(_ context.Context, tag *catalog.Tag) error {
	unlock, err := r.s.lock("tags.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.tagByName(tag.Name); ok {
		return fmt.Errorf("%w: %s", catalog.ErrTagExists, tag.Name)
	}
	tag.ID = r.s.id()
	tag.CreatedAt = time.Now()
	r.s.data.tags[tag.ID] = *tag
	return nil
}

func (r tagRepo) CreateIfAbsent(_ context.Context, tag *catalog.Tag) (bool, error) {
	unlock, err := r.s.lock("tags.CreateIfAbsent")
	defer unlock()
	if err != nil {
		return false, err
	}
	if existing, ok := r.s.tagByName(tag.Name); ok {
		*tag = *r.s.projectTag(existing)
		return false, nil
	}
	tag.ID = r.s.id()
	tag.CreatedAt = time.Now()
	r.s.data.tags[tag.ID] = *tag
	return true, nil
}

func (r tagRepo) GetByID(_ context.Context, id int64) (*catalog.Tag, error) {
	unlock, err := r.s.lock("tags.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	t, ok := r.s.data.tags[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", catalog.ErrTagNotFound, id)
	}
	return r.s.projectTag(t), nil
}

func (r tagRepo) GetByName(_ context.Context, name string) (*catalog.Tag, error) {
	unlock, err := r.s.lock("tags.GetByName")
	defer unlock()
	if err != nil {
		return nil, err
	}
	if t, ok := r.s.tagByName(name); ok {
		return r.s.projectTag(t), nil
	}
	return nil, fmt.Errorf("%w: %s", catalog.ErrTagNotFound, name)
}

func (r tagRepo) GetByNames(_ context.Context, names []string) (map[string]*catalog.Tag, error) {
	unlock, err := r.s.lock("tags.GetByNames")
	defer unlock()
	if err != nil {
		return nil, err
	}
	result := make(map[string]*catalog.Tag, len(names))
	for _, name := range names {
		if t, ok := r.s.tagByName(name); ok {
			result[name] = r.s.projectTag(t)
		}
	}
	return result, nil
}

func (r tagRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	unlock, err := r.s.lock("tags.ExistsByName")
	defer unlock()
	if err != nil {
		return false, err
	}
	_, ok := r.s.tagByName(name)
	return ok, nil
}

func (r tagRepo) List(_ context.Context) ([]*catalog.Tag, error) {
	unlock, err := r.s.lock("tags.List")
	defer unlock()
	if err != nil {
		return nil, err
	}
	return r.s.selectTags(func(catalog.Tag) bool { return true }), nil
}

func (r tagRepo) Search(_ context.Context, term string) ([]*catalog.Tag, error) {
	unlock, err := r.s.lock("tags.Search")
	defer unlock()
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(term)
	return r.s.selectTags(func(t catalog.Tag) bool {
		return strings.Contains(strings.ToLower(t.Name), term)
	}), nil
}

func (r tagRepo) Delete(_ context.Context, id int64) error {
	unlock, err := r.s.lock("tags.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.tags[id]; !ok {
		return fmt.Errorf("%w: id %d", catalog.ErrTagNotFound, id)
	}
	delete(r.s.data.tags, id)
	for k, pt := range r.s.data.productTags {
		if pt.TagID == id {
			delete(r.s.data.productTags, k)
		}
	}
	return nil
}

func (s *Store) tagByName(name string) (catalog.Tag, bool) {
	for _, t := range s.data.tags {
		if t.Name == name {
			return t, true
		}
	}
	return catalog.Tag{}, false
}

func (s *Store) projectTag(t catalog.Tag) *catalog.Tag {
	t.ProductCount = 0
	for _, pt := range s.data.productTags {
		if pt.TagID == t.ID {
			t.ProductCount++
		}
	}
	return &t
}

func (s *Store) selectTags(keep func(catalog.Tag) bool) []*catalog.Tag {
	result := make([]*catalog.Tag, 0)
	for _, t := range s.data.tags {
		if keep(t) {
			result = append(result, s.projectTag(t))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// --- product tags ---

type productTagRepo struct{ s *Store }

func (r productTagRepo) Add(_ context.Context, productID, tagID int64) (bool, error) {
	unlock, err := r.s.lock("product_tags.Add")
	defer unlock()
	if err != nil {
		return false, err
	}
	_, productOK := r.s.data.products[productID]
	_, tagOK := r.s.data.tags[tagID]
	if !productOK || !tagOK {
		return false, fmt.Errorf("%w: product %d or tag %d", catalog.ErrNotFound, productID, tagID)
	}
	for _, pt := range r.s.data.productTags {
		if pt.ProductID == productID && pt.TagID == tagID {
			return false, nil
		}
	}
	id := r.s.id()
	r.s.data.productTags[id] = catalog.ProductTag{ID: id, ProductID: productID, TagID: tagID, CreatedAt: time.Now()}
	return true, nil
}

func (r productTagRepo) Remove(_ context.Context, productID, tagID int64) error {
	unlock, err := r.s.lock("product_tags.Remove")
	defer unlock()
	if err != nil {
		return err
	}
	for k, pt := range r.s.data.productTags {
		if pt.ProductID == productID && pt.TagID == tagID {
			delete(r.s.data.productTags, k)
		}
	}
	return nil
}

func (r productTagRepo) RemoveAllForProduct(_ context.Context, productID int64) error {
	unlock, err := r.s.lock("product_tags.RemoveAllForProduct")
	defer unlock()
	if err != nil {
		return err
	}
	for k, pt := range r.s.data.productTags {
		if pt.ProductID == productID {
			delete(r.s.data.productTags, k)
		}
	}
	return nil
}

func (r productTagRepo) TagNames(_ context.Context, productIDs []int64) (map[int64][]string, error) {
	unlock, err := r.s.lock("product_tags.TagNames")
	defer unlock()
	if err != nil {
		return nil, err
	}
	result := make(map[int64][]string, len(productIDs))
	for _, id := range productIDs {
		if names := r.s.tagNames(id); len(names) > 0 {
			result[id] = names
		}
	}
	return result, nil
}

// --- images ---

type imageRepo struct{ s *Store }

func (r imageRepo) Create(_ context.Context, image *catalog.ProductImage) error {
	unlock, err := r.s.lock("images.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.products[image.ProductID]; !ok {
		return fmt.Errorf("%w: id %d", catalog.ErrProductNotFound, image.ProductID)
	}
	image.ID = r.s.id()
	image.CreatedAt = time.Now()
	r.s.data.images[image.ID] = *image
	return nil
}

func (r imageRepo) GetByID(_ context.Context, id int64) (*catalog.ProductImage, error) {
	unlock, err := r.s.lock("images.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	img, ok := r.s.data.images[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", catalog.ErrImageNotFound, id)
	}
	return &img, nil
}

func (r imageRepo) GetByFileName(_ context.Context, productID int64, fileName string) (*catalog.ProductImage, error) {
	unlock, err := r.s.lock("images.GetByFileName")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var found *catalog.ProductImage
	for _, img := range r.s.data.images {
		if img.ProductID == productID && img.FileName == fileName && (found == nil || img.ID > found.ID) {
			found = &img
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", catalog.ErrImageNotFound, fileName)
	}
	return found, nil
}

func (r imageRepo) ListByProduct(_ context.Context, productID int64) ([]*catalog.ProductImage, error) {
	unlock, err := r.s.lock("images.ListByProduct")
	defer unlock()
	if err != nil {
		return nil, err
	}
	result := make([]*catalog.ProductImage, 0)
	for _, img := range r.s.data.images {
		if img.ProductID == productID {
			result = append(result, &img)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r imageRepo) Delete(_ context.Context, id int64) error {
	unlock, err := r.s.lock("images.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.data.images[id]; !ok {
		return fmt.Errorf("%w: id %d", catalog.ErrImageNotFound, id)
	}
	delete(r.s.data.images, id)
	return nil
}
