package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gocrud/objects/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type account struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

type tag struct {
	Code  string `gorm:"primaryKey"`
	Label string
}

func setup(t *testing.T) (*GormManager, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&account{}, &tag{}))

	refl := reflection.NewRegistry()
	_, err = refl.Register("Account", (*account)(nil), reflection.AsEntity())
	require.NoError(t, err)
	_, err = refl.Register("Tag", (*tag)(nil), reflection.AsValueObject())
	require.NoError(t, err)

	return NewGormManager(db, refl), db
}

func TestGormManager_NewObject(t *testing.T) {
	m, db := setup(t)

	a := &account{Name: "alice"}
	assert.True(t, m.IsNewObject(a))
	_, err := m.IdentifierOf(a)
	assert.Error(t, err)

	require.NoError(t, db.Create(a).Error)
	assert.False(t, m.IsNewObject(a))

	id, err := m.IdentifierOf(a)
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}

func TestGormManager_ObjectByIdentifier(t *testing.T) {
	m, db := setup(t)
	require.NoError(t, db.Create(&account{Name: "bob"}).Error)
	require.NoError(t, db.Create(&tag{Code: "go", Label: "Golang"}).Error)

	obj, err := m.ObjectByIdentifier(context.Background(), "1", "Account")
	require.NoError(t, err)
	assert.Equal(t, "bob", obj.(*account).Name)

	obj, err = m.ObjectByIdentifier(context.Background(), "go", "Tag")
	require.NoError(t, err)
	assert.Equal(t, "Golang", obj.(*tag).Label)
}

func TestGormManager_NotFoundSurfacesAsIs(t *testing.T) {
	m, _ := setup(t)

	_, err := m.ObjectByIdentifier(context.Background(), "42", "Account")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	_, err = m.ObjectByIdentifier(context.Background(), "1", "Missing")
	assert.True(t, errors.Is(err, reflection.ErrUnknownClass))
}
