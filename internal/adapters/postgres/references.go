package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/verification"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// similarityThreshold is the pg_trgm score above which a food counts as similar.
const similarityThreshold = 0.2

// squashed strips whitespace and lower-cases a column the same way
// verification.NormalizeName treats its input.
func squashed(col string) string {
	return fmt.Sprintf(`regexp_replace(lower(%s), '\s+', '', 'g')`, col)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func findFoodQuery(name string) (string, []any, error) {
	key := verification.NormalizeName(name)
	return psql.Select("name").From("foods").
		Where(sq.Or{
			sq.Expr(squashed("name")+" = ?", key),
			sq.Expr("? = ANY(aliases)", strings.TrimSpace(name)),
		}).
		OrderBy("name").Limit(1).ToSql()
}

func searchFoodsQuery(query string, limit int) (string, []any, error) {
	return psql.Select("name").From("foods").
		Where(sq.ILike{"name": "%" + escapeLike(query) + "%"}).
		OrderBy("length(name)", "name").Limit(uint64(limit)).ToSql()
}

func similarFoodsQuery(name string, limit int) (string, []any, error) {
	return psql.Select("name").From("foods").
		Where(sq.Or{
			sq.ILike{"name": "%" + escapeLike(name) + "%"},
			sq.Expr("similarity(name, ?) > ?", name, similarityThreshold),
			sq.Expr("food_group <> '' AND food_group IN (SELECT food_group FROM foods WHERE ? = ANY(aliases))", name),
		}).
		OrderByClause("similarity(name, ?) DESC, name", name).
		Limit(uint64(limit)).ToSql()
}

func findPesticideQuery(name string) (string, []any, error) {
	key := verification.NormalizeName(name)
	// Names recorded in English resolve to the English standard name.
	return psql.Select().
		Column(sq.Expr("CASE WHEN "+squashed("name_en")+" = ? THEN name_en ELSE name_ko END", key)).
		From("pesticides").
		Where(sq.Or{
			sq.Expr(squashed("name_ko")+" = ?", key),
			sq.Expr(squashed("name_en")+" = ?", key),
			sq.Expr("? = ANY(aliases)", strings.TrimSpace(name)),
		}).
		OrderBy("id").Limit(1).ToSql()
}

func searchPesticidesQuery(query string, limit int) (string, []any, error) {
	pattern := "%" + escapeLike(query) + "%"
	return psql.Select("name_ko").From("pesticides").
		Where(sq.Or{sq.ILike{"name_ko": pattern}, sq.ILike{"name_en": pattern}}).
		OrderBy("length(name_ko)", "name_ko").Limit(uint64(limit)).ToSql()
}

func limitQuery(food, pesticide string) (string, []any, error) {
	return psql.Select("l.limit_mg_kg::float8").
		From("residue_limits l").
		Join("foods f ON f.id = l.food_id").
		Join("pesticides p ON p.id = l.pesticide_id").
		Where(sq.Eq{"f.name": food}).
		Where(sq.Or{sq.Eq{"p.name_ko": pesticide}, sq.Eq{"p.name_en": pesticide}}).
		Limit(1).ToSql()
}

func (db *DB) FindFood(ctx context.Context, name string) (string, bool, error) {
	query, args, err := findFoodQuery(name)
	if err != nil {
		return "", false, err
	}
	return db.scanOne(ctx, query, args)
}

func (db *DB) SearchFoods(ctx context.Context, query string, limit int) ([]string, error) {
	sql, args, err := searchFoodsQuery(query, limit)
	if err != nil {
		return nil, err
	}
	return db.scanNames(ctx, sql, args)
}

func (db *DB) SimilarFoods(ctx context.Context, name string, limit int) ([]string, error) {
	sql, args, err := similarFoodsQuery(name, limit)
	if err != nil {
		return nil, err
	}
	return db.scanNames(ctx, sql, args)
}

func (db *DB) FindPesticide(ctx context.Context, name string) (string, bool, error) {
	query, args, err := findPesticideQuery(name)
	if err != nil {
		return "", false, err
	}
	return db.scanOne(ctx, query, args)
}

func (db *DB) SearchPesticides(ctx context.Context, query string, limit int) ([]string, error) {
	sql, args, err := searchPesticidesQuery(query, limit)
	if err != nil {
		return nil, err
	}
	return db.scanNames(ctx, sql, args)
}

func (db *DB) LimitFor(ctx context.Context, food, pesticide string) (*float64, error) {
	query, args, err := limitQuery(food, pesticide)
	if err != nil {
		return nil, err
	}
	var v float64
	err = db.Pool.QueryRow(ctx, query, args...).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (db *DB) scanOne(ctx context.Context, query string, args []any) (string, bool, error) {
	var out string
	err := db.Pool.QueryRow(ctx, query, args...).Scan(&out)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return out, true, nil
}

func (db *DB) scanNames(ctx context.Context, query string, args []any) ([]string, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
