package achievements

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/edgetrack/internal/telemetry/tracing"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) ListAchievements(ctx context.Context) (_ []Achievement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.achievements.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT id, name, COALESCE(key, ''), description, category,
		       condition_type, condition_value, condition_comparison, points
		FROM achievement
		ORDER BY category, id;
	`)
	if err != nil {
		return nil, err
	}

	return rows2achievements(rows)
}

func (r *Repo) ListUserAchievements(ctx context.Context, userID string) (_ []UserAchievement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.achievements.user.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	rows, err := r.db.Query(ctx, `
		SELECT user_id, achievement_id, progress, unlocked_at
		FROM user_achievement
		WHERE user_id = $1;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	userAchievements := make([]UserAchievement, 0)
	for rows.Next() {
		var ua UserAchievement
		if err := rows.Scan(&ua.UserID, &ua.AchievementID, &ua.Progress, &ua.UnlockedAt); err != nil {
			return nil, fmt.Errorf("scan user achievement: %w", err)
		}
		userAchievements = append(userAchievements, ua)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return userAchievements, nil
}

// UpsertUserAchievement is idempotent per (user, achievement). Once a row is
// unlocked its unlocked_at and progress are never touched again.
func (r *Repo) UpsertUserAchievement(ctx context.Context, ua UserAchievement) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.achievements.user.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", ua.UserID),
		attribute.String("achievement.id", ua.AchievementID),
		attribute.Int("progress", ua.Progress),
	)

	if ua.Progress < 0 || ua.Progress > 100 {
		return fmt.Errorf("progress out of range: %d", ua.Progress)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO user_achievement (user_id, achievement_id, progress, unlocked_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, achievement_id) DO UPDATE SET
			progress = CASE
				WHEN user_achievement.unlocked_at IS NOT NULL THEN user_achievement.progress
				ELSE EXCLUDED.progress
			END,
			unlocked_at = COALESCE(user_achievement.unlocked_at, EXCLUDED.unlocked_at),
			updated_at = now();
	`, ua.UserID, ua.AchievementID, ua.Progress, ua.UnlockedAt)
	return err
}

// AddAchievement inserts or refreshes a catalog entry.
func (r *Repo) AddAchievement(ctx context.Context, a Achievement) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.achievements.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("achievement.id", a.ID))

	var key *string
	if a.Key != "" {
		key = &a.Key
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO achievement
			(id, name, key, description, category, condition_type, condition_value, condition_comparison, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			key = EXCLUDED.key,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			condition_type = EXCLUDED.condition_type,
			condition_value = EXCLUDED.condition_value,
			condition_comparison = EXCLUDED.condition_comparison,
			points = EXCLUDED.points;
	`,
		a.ID, a.Name, key, a.Description, string(a.Category),
		string(a.ConditionType), a.ConditionValue, string(a.ConditionComparison), a.Points,
	)
	return err
}

func rows2achievements(rows pgx.Rows) ([]Achievement, error) {
	defer rows.Close()

	catalog := make([]Achievement, 0)
	for rows.Next() {
		var a Achievement
		var category, conditionType, comparison string
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Key, &a.Description, &category,
			&conditionType, &a.ConditionValue, &comparison, &a.Points,
		); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		a.Category = Category(category)
		a.ConditionType = ConditionType(conditionType)
		a.ConditionComparison = Comparison(comparison)
		catalog = append(catalog, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return catalog, nil
}
