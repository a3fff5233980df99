package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
)

const uniqueViolation = "23505"

// Exists reports whether a certificate number is already registered.
func (db *DB) Exists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM certificates WHERE certificate_number = $1)`, number).Scan(&exists)
	return exists, err
}

// Save stores the certificate with its findings. Overwrite replaces the
// findings of an existing certificate with the same number.
func (db *DB) Save(ctx context.Context, c domain.StoredCertificate, overwrite bool) (_ string, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	query := insertCertificateSQL
	if overwrite {
		query += overwriteCertificateSQL
	}
	query += ` RETURNING id`

	var id int64
	cert := c.Certificate
	err = tx.QueryRow(ctx, query,
		c.Number, cert.ApplicantName, cert.ApplicantAddress, cert.SampleDescription,
		cert.AnalyticalPurpose, cert.TestStartDate, cert.TestEndDate, cert.AnalyzedItems,
		c.Food, string(c.Summary.Outcome), c.Summary.OverallConsistent, c.Summary.MismatchCount,
		c.Summary.IsEcoFriendly, c.Summary.AllReviewOpinionsEmpty,
	).Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return "", domain.ErrAlreadyExists
	}
	if err != nil {
		return "", fmt.Errorf("insert certificate: %w", err)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM certificate_findings WHERE certificate_id = $1`, id); err != nil {
		return "", fmt.Errorf("clear findings: %w", err)
	}
	if _, err = tx.CopyFrom(ctx, pgx.Identifier{"certificate_findings"}, findingColumns,
		pgx.CopyFromSlice(len(cert.Findings), findingRow(id, c))); err != nil {
		return "", fmt.Errorf("copy findings: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// Get loads a stored certificate by number.
func (db *DB) Get(ctx context.Context, number string) (domain.StoredCertificate, error) {
	var c domain.StoredCertificate
	var id int64
	var outcome string
	err := db.Pool.QueryRow(ctx, `
        SELECT id, certificate_number, applicant_name, applicant_address, sample_description,
               analytical_purpose, test_start_date, test_end_date, analyzed_items, food,
               outcome, overall_consistent, mismatch_count, is_eco_friendly, review_opinions_empty,
               created_at, updated_at
        FROM certificates WHERE certificate_number = $1
    `, number).Scan(&id, &c.Number, &c.Certificate.ApplicantName, &c.Certificate.ApplicantAddress,
		&c.Certificate.SampleDescription, &c.Certificate.AnalyticalPurpose, &c.Certificate.TestStartDate,
		&c.Certificate.TestEndDate, &c.Certificate.AnalyzedItems, &c.Food,
		&outcome, &c.Summary.OverallConsistent, &c.Summary.MismatchCount, &c.Summary.IsEcoFriendly,
		&c.Summary.AllReviewOpinionsEmpty, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, domain.ErrNotFound
	}
	if err != nil {
		return c, err
	}
	c.ID = strconv.FormatInt(id, 10)
	c.Certificate.CertificateNumber = c.Number
	c.Summary.Outcome = domain.Outcome(outcome)

	rows, err := db.Pool.Query(ctx, `
        SELECT recorded_pesticide_name, detection_value, recorded_limit_text, recorded_verdict,
               name_matches, computed_verdict, consistent, has_recorded_limit, final_pass
        FROM certificate_findings WHERE certificate_id = $1 ORDER BY position
    `, id)
	if err != nil {
		return c, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f domain.ExtractedFinding
		var v domain.FindingVerdict
		var recorded *string
		var computed string
		if err := rows.Scan(&f.RecordedPesticideName, &f.DetectionValue, &f.RecordedLimitText, &recorded,
			&v.NameMatches, &computed, &v.IsConsistentWithRecordedVerdict, &v.HasRecordedLimitValue, &v.FinalPass); err != nil {
			return c, fmt.Errorf("scan finding: %w", err)
		}
		if recorded != nil {
			rv := domain.Verdict(*recorded)
			f.RecordedVerdict = &rv
		}
		v.ComputedVerdict = domain.Verdict(computed)
		c.Certificate.Findings = append(c.Certificate.Findings, f)
		c.Verdicts = append(c.Verdicts, v)
	}
	return c, rows.Err()
}

const insertCertificateSQL = `
        INSERT INTO certificates (certificate_number, applicant_name, applicant_address, sample_description,
            analytical_purpose, test_start_date, test_end_date, analyzed_items, food,
            outcome, overall_consistent, mismatch_count, is_eco_friendly, review_opinions_empty)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const overwriteCertificateSQL = `
        ON CONFLICT (certificate_number) DO UPDATE SET
            applicant_name = EXCLUDED.applicant_name,
            applicant_address = EXCLUDED.applicant_address,
            sample_description = EXCLUDED.sample_description,
            analytical_purpose = EXCLUDED.analytical_purpose,
            test_start_date = EXCLUDED.test_start_date,
            test_end_date = EXCLUDED.test_end_date,
            analyzed_items = EXCLUDED.analyzed_items,
            food = EXCLUDED.food,
            outcome = EXCLUDED.outcome,
            overall_consistent = EXCLUDED.overall_consistent,
            mismatch_count = EXCLUDED.mismatch_count,
            is_eco_friendly = EXCLUDED.is_eco_friendly,
            review_opinions_empty = EXCLUDED.review_opinions_empty,
            updated_at = now()`

var findingColumns = []string{
	"certificate_id", "position", "recorded_pesticide_name", "detection_value", "recorded_limit_text",
	"recorded_verdict", "name_matches", "computed_verdict", "consistent", "has_recorded_limit", "final_pass",
}

func findingRow(id int64, c domain.StoredCertificate) func(int) ([]any, error) {
	return func(i int) ([]any, error) {
		f := c.Certificate.Findings[i]
		if i >= len(c.Verdicts) {
			return nil, fmt.Errorf("finding %d has no verdict", i)
		}
		v := c.Verdicts[i]
		var recorded *string
		if f.HasRecordedVerdict() {
			s := string(*f.RecordedVerdict)
			recorded = &s
		}
		return []any{
			id, i, f.RecordedPesticideName, f.DetectionValue, f.RecordedLimitText, recorded,
			v.NameMatches, string(v.ComputedVerdict), v.IsConsistentWithRecordedVerdict,
			v.HasRecordedLimitValue, v.FinalPass,
		}, nil
	}
}
