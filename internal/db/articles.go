package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"newsbot/internal/models"
)

// Articles are ordered oldest first; ties are broken by numeric id order.
const articleOrder = "published_ns, LENGTH(id), id"

// ArticleStore is the durable, append-only article collection keyed by the
// URL-derived article id.
type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

type articleRow struct {
	ID          string `db:"id"`
	PublishedAt string `db:"published_at"`
	Category    string `db:"category"`
	Title       string `db:"title"`
	URL         string `db:"url"`
}

func (r articleRow) article() (models.Article, error) {
	published, err := time.Parse(time.RFC3339Nano, r.PublishedAt)
	if err != nil {
		return models.Article{}, fmt.Errorf("article %s has invalid published_at %q: %w", r.ID, r.PublishedAt, err)
	}
	return models.Article{
		ID:          r.ID,
		PublishedAt: published,
		Category:    r.Category,
		Title:       r.Title,
		URL:         r.URL,
	}, nil
}

func toArticles(rows []articleRow) ([]models.Article, error) {
	articles := make([]models.Article, 0, len(rows))
	for _, r := range rows {
		a, err := r.article()
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// Exists reports whether an article with the given id is already stored.
func (s *ArticleStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.db.Rebind("SELECT COUNT(*) FROM articles WHERE id = ?"), id)
	if err != nil {
		return false, unavailable("check article", err)
	}
	return count > 0, nil
}

// InsertNew stores every article whose id is not present yet and returns
// exactly the ones inserted by this call. The batch is written in a single
// transaction: on error nothing from the batch is stored.
func (s *ArticleStore) InsertNew(ctx context.Context, articles []models.Article) ([]models.Article, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin insert", err)
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO articles (id, published_at, published_ns, category, title, url)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
		RETURNING id`)

	var inserted []models.Article
	for _, a := range articles {
		var id string
		err := tx.GetContext(ctx, &id, query,
			a.ID, a.PublishedAt.Format(time.RFC3339Nano), a.PublishedAt.UnixNano(), a.Category, a.Title, a.URL)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, unavailable("insert article "+a.ID, err)
		}
		inserted = append(inserted, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit insert", err)
	}
	return inserted, nil
}

// AllOrderedByPublishedAt returns every stored article, oldest first.
func (s *ArticleStore) AllOrderedByPublishedAt(ctx context.Context) ([]models.Article, error) {
	var rows []articleRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, published_at, category, title, url FROM articles ORDER BY "+articleOrder)
	if err != nil {
		return nil, unavailable("list articles", err)
	}
	return toArticles(rows)
}

type pageRow struct {
	Total       int64          `db:"total"`
	ID          sql.NullString `db:"id"`
	PublishedAt sql.NullString `db:"published_at"`
	Category    sql.NullString `db:"category"`
	Title       sql.NullString `db:"title"`
	URL         sql.NullString `db:"url"`
}

// Page returns up to limit articles starting at offset in publish order,
// together with the total article count. Both come from one statement, so
// they describe the same snapshot of the store.
func (s *ArticleStore) Page(ctx context.Context, offset, limit int) ([]models.Article, int, error) {
	query := s.db.Rebind(`
		SELECT t.total, a.id, a.published_at, a.category, a.title, a.url
		FROM (SELECT COUNT(*) AS total FROM articles) t
		LEFT JOIN (
			SELECT id, published_at, published_ns, category, title, url
			FROM articles
			ORDER BY ` + articleOrder + `
			LIMIT ? OFFSET ?
		) a ON 1 = 1
		ORDER BY a.published_ns, LENGTH(a.id), a.id`)

	var rows []pageRow
	if err := s.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, unavailable("page articles", err)
	}
	if len(rows) == 0 {
		return nil, 0, nil
	}

	total := int(rows[0].Total)
	articles := make([]models.Article, 0, len(rows))
	for _, r := range rows {
		if !r.ID.Valid {
			continue
		}
		a, err := articleRow{
			ID:          r.ID.String,
			PublishedAt: r.PublishedAt.String,
			Category:    r.Category.String,
			Title:       r.Title.String,
			URL:         r.URL.String,
		}.article()
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, a)
	}
	return articles, total, nil
}

// Recent returns the newest limit articles, newest first.
func (s *ArticleStore) Recent(ctx context.Context, limit int) ([]models.Article, error) {
	var rows []articleRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, published_at, category, title, url
		FROM articles
		ORDER BY published_ns DESC, LENGTH(id) DESC, id DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, unavailable("recent articles", err)
	}
	return toArticles(rows)
}

// Count returns the number of stored articles.
func (s *ArticleStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM articles"); err != nil {
		return 0, unavailable("count articles", err)
	}
	return count, nil
}
