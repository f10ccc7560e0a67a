package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"
)

func init() {
	util.SilenceLogger()
}

// In-memory doubles for the store interfaces. The offer ledger mirrors the
// SQL store's contract, including the one-pending-per-buyer rule and the
// accept cascade, so the engine tests exercise real flows.

type fakeUserStore struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*models.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.Email == user.Email || u.Username == user.Username {
			return store.ErrDuplicateKey
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) UpdateUserProfile(_ context.Context, user *models.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return store.ErrNotFound
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserStore) UpdateUserPassword(_ context.Context, userID int64, passwordHash string) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserStore) seed(user models.User) *models.User {
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = &user
	return &user
}

type fakeProductStore struct {
	products map[int64]*models.Product
	nextID   int64

	// forced DeleteProduct result, for the pending-offer guard
	deleteErr error
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{products: make(map[int64]*models.Product)}
}

func (f *fakeProductStore) CreateProduct(_ context.Context, product *models.Product, imageURLs []string) error {
	f.nextID++
	product.ID = f.nextID
	product.CreatedAt = time.Now()
	for i, url := range imageURLs {
		product.Images = append(product.Images, models.ProductImage{
			ID: int64(i + 1), URL: url, ProductID: product.ID, Position: i,
		})
	}
	f.products[product.ID] = product
	return nil
}

func (f *fakeProductStore) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProductStore) GetProductWithImages(ctx context.Context, id int64) (*models.Product, error) {
	return f.GetProductByID(ctx, id)
}

func (f *fakeProductStore) GetProductsBySeller(_ context.Context, sellerID int64) ([]models.Product, error) {
	out := []models.Product{}
	for _, p := range f.products {
		if p.SellerID == sellerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProductStore) UpdateProduct(_ context.Context, product *models.Product, replaceImages bool, imageURLs []string) error {
	existing, ok := f.products[product.ID]
	if !ok {
		return store.ErrNotFound
	}
	if !replaceImages {
		product.Images = existing.Images
	} else {
		product.Images = nil
		for i, url := range imageURLs {
			product.Images = append(product.Images, models.ProductImage{
				ID: int64(i + 1), URL: url, ProductID: product.ID, Position: i,
			})
		}
	}
	copied := *product
	f.products[product.ID] = &copied
	return nil
}

func (f *fakeProductStore) DeleteProduct(_ context.Context, productID int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.products[productID]; !ok {
		return store.ErrNotFound
	}
	delete(f.products, productID)
	return nil
}

func (f *fakeProductStore) QueryCatalog(_ context.Context, filter store.CatalogFilter) (*store.CatalogPage, error) {
	out := []models.Product{}
	for _, p := range f.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	pages := (len(out) + filter.PerPage - 1) / filter.PerPage
	return &store.CatalogPage{Products: out, Total: len(out), Pages: pages}, nil
}

func (f *fakeProductStore) GetAvailableFilters(_ context.Context) (*store.AvailableFilters, error) {
	return &store.AvailableFilters{
		Sizes: []string{}, Brands: []string{}, Colors: []string{}, Conditions: []string{},
	}, nil
}

func (f *fakeProductStore) GetRelatedProducts(_ context.Context, _ *models.Product, _ int) ([]models.Product, []models.Product, error) {
	return nil, nil, nil
}

func (f *fakeProductStore) seed(product models.Product) *models.Product {
	f.nextID++
	product.ID = f.nextID
	f.products[product.ID] = &product
	return &product
}

type fakeOfferLedger struct {
	offers   map[int64]*models.Offer
	users    *fakeUserStore
	products *fakeProductStore
	nextID   int64
}

func newFakeOfferLedger(users *fakeUserStore, products *fakeProductStore) *fakeOfferLedger {
	return &fakeOfferLedger{
		offers:   make(map[int64]*models.Offer),
		users:    users,
		products: products,
	}
}

func (f *fakeOfferLedger) CreateOffer(ctx context.Context, offer *models.Offer) error {
	exists, _ := f.HasPendingOffer(ctx, offer.ProductID, offer.BuyerID)
	if exists {
		return store.ErrDuplicatePending
	}
	f.nextID++
	offer.ID = f.nextID
	offer.CreatedAt = time.Now()
	copied := *offer
	f.offers[offer.ID] = &copied
	return nil
}

func (f *fakeOfferLedger) GetOfferByID(_ context.Context, id int64) (*models.Offer, error) {
	o, ok := f.offers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOfferLedger) GetOfferDetail(ctx context.Context, id int64) (*models.OfferDetail, error) {
	offer, err := f.GetOfferByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.detail(offer), nil
}

func (f *fakeOfferLedger) detail(offer *models.Offer) *models.OfferDetail {
	d := &models.OfferDetail{Offer: *offer}
	if p, ok := f.products.products[offer.ProductID]; ok {
		d.ProductTitle = p.Title
		d.ProductPrice = p.Price
		if len(p.Images) > 0 {
			d.ProductImage = sql.NullString{String: p.Images[0].URL, Valid: true}
		}
	}
	if b, ok := f.users.users[offer.BuyerID]; ok {
		d.BuyerUsername = b.Username
		d.BuyerFirstName = b.FirstName
	}
	if s, ok := f.users.users[offer.SellerID]; ok {
		d.SellerUsername = s.Username
	}
	return d
}

func (f *fakeOfferLedger) HasPendingOffer(_ context.Context, productID, buyerID int64) (bool, error) {
	for _, o := range f.offers {
		if o.ProductID == productID && o.BuyerID == buyerID && o.Status == models.OfferStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOfferLedger) AcceptOffer(_ context.Context, offerID int64, response string) (*models.Offer, int, error) {
	offer, ok := f.offers[offerID]
	if !ok {
		return nil, 0, store.ErrNotFound
	}
	if offer.Status != models.OfferStatusPending {
		return nil, 0, store.ErrNotPending
	}

	now := time.Now().UTC()
	offer.Status = models.OfferStatusAccepted
	offer.SellerResponse = sql.NullString{String: response, Valid: true}
	offer.RespondedAt = sql.NullTime{Time: now, Valid: true}

	rejected := 0
	for _, sibling := range f.offers {
		if sibling.ID == offerID || sibling.ProductID != offer.ProductID {
			continue
		}
		if sibling.Status == models.OfferStatusPending {
			sibling.Status = models.OfferStatusRejected
			sibling.SellerResponse = sql.NullString{String: models.ResponseSiblingAccepted, Valid: true}
			sibling.RespondedAt = sql.NullTime{Time: now, Valid: true}
			rejected++
		}
	}

	copied := *offer
	return &copied, rejected, nil
}

func (f *fakeOfferLedger) RejectOffer(_ context.Context, offerID int64, response string) (*models.Offer, error) {
	offer, ok := f.offers[offerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if offer.Status != models.OfferStatusPending {
		return nil, store.ErrNotPending
	}

	offer.Status = models.OfferStatusRejected
	offer.SellerResponse = sql.NullString{String: response, Valid: true}
	offer.RespondedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	copied := *offer
	return &copied, nil
}

func (f *fakeOfferLedger) ListSellerOffers(_ context.Context, sellerID int64, status, sortOrder string) ([]models.OfferDetail, error) {
	out := []models.OfferDetail{}
	for _, o := range f.offers {
		if o.SellerID != sellerID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, *f.detail(o))
	}
	sort.Slice(out, func(i, j int) bool {
		switch sortOrder {
		case "oldest":
			return out[i].ID < out[j].ID
		case "amount_high":
			return out[i].Amount > out[j].Amount
		case "amount_low":
			return out[i].Amount < out[j].Amount
		default:
			return out[i].ID > out[j].ID
		}
	})
	return out, nil
}

func (f *fakeOfferLedger) ListBuyerOffers(_ context.Context, buyerID int64, status string) ([]models.OfferDetail, error) {
	out := []models.OfferDetail{}
	for _, o := range f.offers {
		if o.BuyerID != buyerID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, *f.detail(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeOfferLedger) CountSellerOffers(_ context.Context, sellerID int64) (*models.OfferStats, error) {
	stats := &models.OfferStats{}
	for _, o := range f.offers {
		if o.SellerID != sellerID {
			continue
		}
		stats.Total++
		switch o.Status {
		case models.OfferStatusPending:
			stats.Pending++
		case models.OfferStatusAccepted:
			stats.Accepted++
		case models.OfferStatusRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

type fakePublisher struct {
	submitted []*models.OfferSubmittedEvent
	accepted  []*models.OfferAcceptedEvent
	rejected  []models.OfferRejectedEvent
}

func (f *fakePublisher) PublishOfferSubmitted(_ context.Context, e *models.OfferSubmittedEvent) error {
	f.submitted = append(f.submitted, e)
	return nil
}

func (f *fakePublisher) PublishOfferAccepted(_ context.Context, e *models.OfferAcceptedEvent) error {
	f.accepted = append(f.accepted, e)
	return nil
}

func (f *fakePublisher) PublishOfferRejected(_ context.Context, e *models.OfferRejectedEvent) error {
	f.rejected = append(f.rejected, *e)
	return nil
}

type fakeTokenStore struct {
	tokens map[string]int64
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]int64)}
}

func (f *fakeTokenStore) StoreResetToken(_ context.Context, token string, userID int64, _ time.Duration) error {
	f.tokens[token] = userID
	return nil
}

func (f *fakeTokenStore) ConsumeResetToken(_ context.Context, token string) (int64, bool, error) {
	userID, ok := f.tokens[token]
	if !ok {
		return 0, false, nil
	}
	delete(f.tokens, token)
	return userID, true, nil
}
