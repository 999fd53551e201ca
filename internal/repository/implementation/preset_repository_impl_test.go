package implementation

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ambient-stream-be/internal/entity"
	"ambient-stream-be/internal/model"
	"ambient-stream-be/pkg/database"
	"ambient-stream-be/pkg/generator"
	"ambient-stream-be/pkg/weather"
)

func TestPresetRepositoryGorm(t *testing.T) {
	// Load .env from root because tests run in the package dir
	_ = godotenv.Load("../../../.env")

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Preset{}))

	repo := NewPresetRepository(db)
	ctx := context.Background()

	params := weather.Defaults()
	params.Tempo = 72
	name := "it-" + uuid.NewString()[:8]
	preset := &entity.Preset{
		Id:            uuid.New(),
		Name:          name,
		Key:           "Bb",
		Scale:         "melodic_minor",
		Parameters:    &params,
		Probabilities: &generator.Probabilities{Silence: 0.3, Chord: 0.2},
	}
	require.NoError(t, repo.Create(ctx, preset))
	defer db.Unscoped().Where("name = ?", name).Delete(&model.Preset{})

	got, err := repo.FindByName(ctx, name)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "melodic_minor", got.Scale)
	assert.Equal(t, 72.0, got.Parameters.Tempo)
	assert.Equal(t, 0.3, got.Probabilities.Silence)

	missing, err := repo.FindByName(ctx, name+"-missing")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	count, err := repo.Count(ctx)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, count, int64(1))
}
