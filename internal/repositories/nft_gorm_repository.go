package repositories

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"nftmarket/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMNFTRepository is a GORM implementation of NFTRepository.
type GORMNFTRepository struct {
	db *gorm.DB
}

// NewGORMNFTRepository creates a new instance of GORMNFTRepository.
func NewGORMNFTRepository(db *gorm.DB) *GORMNFTRepository {
	return &GORMNFTRepository{
		db: db,
	}
}

// withParties resolves the creator, owner and likers of each NFT.
func withParties(db *gorm.DB) *gorm.DB {
	return db.Preload("Creator").Preload("Owner").Preload("Likes")
}

// Create inserts a new NFT.
func (r *GORMNFTRepository) Create(ctx context.Context, nft *models.NFT) error {
	if nft.ID == "" {
		nft.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(nft).Error; err != nil {
			return fmt.Errorf("failed to create nft: %w", translate(err))
		}
		return replaceTags(tx, nft.ID, nft.Tags)
	})
}

// replaceTags rewrites the searchable tag rows of an NFT. Tags that differ
// only in case are stored once.
func replaceTags(tx *gorm.DB, nftID string, tags []string) error {
	if err := tx.Delete(&models.Tag{}, "nft_id = ?", nftID).Error; err != nil {
		return fmt.Errorf("failed to clear nft tags: %w", err)
	}
	seen := make(map[string]struct{}, len(tags))
	rows := make([]models.Tag, 0, len(tags))
	for _, tag := range tags {
		folded := strings.ToLower(tag)
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		rows = append(rows, models.Tag{NFTID: nftID, Tag: folded})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to store nft tags: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a single NFT with its parties, likes and sale history.
func (r *GORMNFTRepository) GetByID(ctx context.Context, id string) (*models.NFT, error) {
	var nft models.NFT
	err := r.db.WithContext(ctx).
		Scopes(withParties).
		Preload("TransactionHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC").Order("id ASC")
		}).
		Preload("TransactionHistory.From").
		Preload("TransactionHistory.To").
		First(&nft, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get nft by ID %s: %w", id, translate(err))
	}
	return &nft, nil
}

func (r *GORMNFTRepository) filtered(ctx context.Context, f NFTFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.NFT{})
	if f.ListedOnly {
		q = q.Where("is_listed = ?", true)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.CreatorID != "" {
		q = q.Where("creator_id = ?", f.CreatorID)
	}
	if f.Search != "" {
		like := "LIKE ?" + likeEscapeClause(r.db)
		pattern := containsPattern(f.Search)
		q = q.Where(
			"(LOWER(name) "+like+" OR LOWER(description) "+like+
				" OR EXISTS (SELECT 1 FROM nft_tags WHERE nft_tags.nft_id = nfts.id AND nft_tags.tag "+like+"))",
			pattern, pattern, pattern,
		)
	}
	return q
}

// List returns one page of NFTs matching filter together with the total
// number of matches.
func (r *GORMNFTRepository) List(ctx context.Context, filter NFTFilter, sort Sort, page Page) ([]models.NFT, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count nfts: %w", err)
	}

	column, ok := SortableFields[sort.Field]
	if !ok {
		column = SortableFields["createdAt"]
	}

	nfts := make([]models.NFT, 0, page.Size)
	err := r.filtered(ctx, filter).
		Scopes(withParties).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: sort.Desc}).
		Order("id ASC").
		Limit(page.Size).
		Offset(page.Offset()).
		Find(&nfts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list nfts: %w", err)
	}
	return nfts, total, nil
}

// UpdateFields writes the named columns of nft. Associations are never
// touched.
func (r *GORMNFTRepository) UpdateFields(ctx context.Context, nft *models.NFT, fields []string) error {
	patch := models.NFT{
		ID:          nft.ID,
		Name:        nft.Name,
		Description: nft.Description,
		Price:       nft.Price,
		Category:    nft.Category,
		Tags:        nft.Tags,
		Attributes:  nft.Attributes,
		UpdatedAt:   time.Now(),
	}
	columns := append(append([]string{}, fields...), "updated_at")
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&patch).Select(columns).Updates(&patch)
		if res.Error != nil {
			return fmt.Errorf("failed to update nft: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("nft with ID %s not found for update: %w", nft.ID, ErrNotFound)
		}
		if slices.Contains(fields, "tags") {
			return replaceTags(tx, nft.ID, nft.Tags)
		}
		return nil
	})
	if err != nil {
		return err
	}
	nft.UpdatedAt = patch.UpdatedAt
	return nil
}

// SetListing flips the listed flag and, when price is non-nil, the asking
// price.
func (r *GORMNFTRepository) SetListing(ctx context.Context, id string, listed bool, price *float64) error {
	values := map[string]interface{}{
		"is_listed":  listed,
		"updated_at": time.Now(),
	}
	if price != nil {
		values["price"] = *price
	}
	res := r.db.WithContext(ctx).Model(&models.NFT{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update listing: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("nft with ID %s not found for listing: %w", id, ErrNotFound)
	}
	return nil
}

// IncrementViews adds one view in place.
func (r *GORMNFTRepository) IncrementViews(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.NFT{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to increment views: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("nft with ID %s not found: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes an NFT together with its likes and sale history.
func (r *GORMNFTRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.NFT{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete nft: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("nft with ID %s not found for deletion: %w", id, ErrNotFound)
		}
		if err := tx.Delete(&models.Like{}, "nft_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete nft likes: %w", err)
		}
		if err := tx.Delete(&models.Transaction{}, "nft_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete nft history: %w", err)
		}
		if err := tx.Delete(&models.Tag{}, "nft_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete nft tags: %w", err)
		}
		return nil
	})
}

// ToggleLike removes the user's like if present, adds it otherwise, and
// reports the resulting state and like count.
func (r *GORMNFTRepository) ToggleLike(ctx context.Context, nftID, userID string) (bool, int64, error) {
	var (
		liked bool
		count int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.NFT{}).Where("id = ?", nftID).Count(&exists).Error; err != nil {
			return fmt.Errorf("failed to look up nft: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("nft with ID %s not found: %w", nftID, ErrNotFound)
		}

		res := tx.Where("nft_id = ? AND user_id = ?", nftID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return fmt.Errorf("failed to remove like: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if err := tx.Create(&models.Like{NFTID: nftID, UserID: userID}).Error; err != nil {
				return fmt.Errorf("failed to add like: %w", translate(err))
			}
			liked = true
		}

		if err := tx.Model(&models.Like{}).Where("nft_id = ?", nftID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count likes: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

// Transfer applies a sale atomically: the NFT changes hands only if it is
// still listed by the seller at the agreed price, the history entry is
// appended, and both parties' counters move. Nothing is committed if any
// step fails.
func (r *GORMNFTRepository) Transfer(ctx context.Context, cmd TransferCommand) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.NFT{}).
			Where("id = ? AND is_listed = ? AND owner_id = ? AND price = ?", cmd.NFTID, true, cmd.SellerID, cmd.Price).
			Updates(map[string]interface{}{
				"owner_id":   cmd.BuyerID,
				"is_listed":  false,
				"updated_at": cmd.Timestamp,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to transfer nft: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("nft with ID %s is no longer for sale by %s at %v: %w", cmd.NFTID, cmd.SellerID, cmd.Price, ErrStateChanged)
		}

		entry := models.Transaction{
			NFTID:           cmd.NFTID,
			FromID:          cmd.SellerID,
			ToID:            cmd.BuyerID,
			Price:           cmd.Price,
			TransactionHash: cmd.TransactionHash,
			Timestamp:       cmd.Timestamp,
		}
		if err := tx.Omit(clause.Associations).Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to append transaction: %w", translate(err))
		}

		if err := incrementCounter(tx, cmd.SellerID, "total_sales"); err != nil {
			return err
		}
		return incrementCounter(tx, cmd.BuyerID, "total_purchases")
	})
}

func incrementCounter(tx *gorm.DB, userID, column string) error {
	res := tx.Model(&models.User{}).Where("id = ?", userID).UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("failed to increment %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s not found for %s: %w", userID, column, ErrNotFound)
	}
	return nil
}

// Stats computes catalog-wide counters and the total traded volume.
func (r *GORMNFTRepository) Stats(ctx context.Context) (models.MarketStats, error) {
	var s models.MarketStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.NFT{}).Count(&s.TotalNFTs).Error; err != nil {
		return s, fmt.Errorf("failed to count nfts: %w", err)
	}
	if err := db.Model(&models.NFT{}).Where("is_listed = ?", true).Count(&s.ListedNFTs).Error; err != nil {
		return s, fmt.Errorf("failed to count listed nfts: %w", err)
	}
	if err := db.Model(&models.User{}).Count(&s.TotalUsers).Error; err != nil {
		return s, fmt.Errorf("failed to count users: %w", err)
	}
	row := db.Model(&models.Transaction{}).Select("COALESCE(SUM(price), 0)").Row()
	if err := row.Scan(&s.TotalVolume); err != nil {
		return s, fmt.Errorf("failed to sum volume: %w", err)
	}
	return s, nil
}

// RecentSales returns the latest history entries across the catalog.
func (r *GORMNFTRepository) RecentSales(ctx context.Context, limit int) ([]models.Transaction, error) {
	sales := make([]models.Transaction, 0, limit)
	err := r.db.WithContext(ctx).
		Preload("From").
		Preload("To").
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent sales: %w", err)
	}
	return sales, nil
}

// Trending returns the most viewed listed NFTs.
func (r *GORMNFTRepository) Trending(ctx context.Context, limit int) ([]models.NFT, error) {
	nfts := make([]models.NFT, 0, limit)
	err := r.db.WithContext(ctx).
		Scopes(withParties).
		Where("is_listed = ?", true).
		Order("views DESC").
		Order("id ASC").
		Limit(limit).
		Find(&nfts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get trending nfts: %w", err)
	}
	return nfts, nil
}

// CategoryCounts groups listed NFTs by category, largest group first.
func (r *GORMNFTRepository) CategoryCounts(ctx context.Context) ([]models.CategoryCount, error) {
	counts := make([]models.CategoryCount, 0, len(models.Categories))
	err := r.db.WithContext(ctx).
		Model(&models.NFT{}).
		Select("category, COUNT(*) AS count").
		Where("is_listed = ?", true).
		Group("category").
		Order("COUNT(*) DESC").
		Order("category ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	return counts, nil
}
