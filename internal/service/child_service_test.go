package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"learnhub/internal/domain"
	"learnhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloud struct {
	uploaded []string
	deleted  []string
}

func (c *fakeCloud) UploadImage(_ context.Context, file io.Reader, folder, publicID string) (string, string, error) {
	if _, err := io.ReadAll(file); err != nil {
		return "", "", err
	}
	c.uploaded = append(c.uploaded, folder+"/"+publicID)
	return "https://img.test/" + publicID, "https://img.test/thumb/" + publicID, nil
}

func (c *fakeCloud) Delete(_ context.Context, folder, publicID string) error {
	c.deleted = append(c.deleted, folder+"/"+publicID)
	return nil
}

func TestChildProfileLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cloud := &fakeCloud{}
	f.children.cloud = cloud
	parent := f.user(t, "parent@test.test", domain.RoleParent)
	stranger := f.user(t, "stranger@test.test", domain.RoleParent)

	_, err := f.children.Create(parent.ID, ChildInput{Name: "  "})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	kid, err := f.children.Create(parent.ID, ChildInput{Name: "Kid", DateOfBirth: "2018-05-01", GradeLevel: "2"})
	require.NoError(t, err)
	require.NotNil(t, kid.DateOfBirth)
	assert.Nil(t, kid.CurrentPlan)

	_, err = f.children.Get(stranger.ID, kid.ID)
	require.ErrorIs(t, err, domain.ErrChildNotFound)

	updated, err := f.children.Update(parent.ID, kid.ID, ChildInput{Name: "Kiddo", GradeLevel: "3"})
	require.NoError(t, err)
	assert.Equal(t, "Kiddo", updated.Name)
	assert.Nil(t, updated.DateOfBirth)

	withAvatar, err := f.children.UploadAvatar(ctx, parent.ID, kid.ID, strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/"+avatarID(kid.ID), withAvatar.AvatarURL)

	plan := f.plan(t, 1000, 30, true)
	pp, err := f.subscriptions.Purchase(ctx, parent.ID, plan.ID)
	require.NoError(t, err)
	_, err = f.subscriptions.AssignToChild(ctx, parent.ID, pp.ID, kid.ID)
	require.NoError(t, err)

	require.NoError(t, f.children.Delete(ctx, parent.ID, kid.ID))
	assert.Equal(t, []string{avatarFolder + "/" + avatarID(kid.ID)}, cloud.deleted)

	var stored models.PurchasedPlan
	require.NoError(t, f.db.First(&stored, pp.ID).Error)
	assert.Nil(t, stored.ChildProfileID)

	list, err := f.children.List(parent.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUploadAvatarDisabled(t *testing.T) {
	f := newFixture(t)
	parent := f.user(t, "parent@test.test", domain.RoleParent)
	kid, err := f.children.Create(parent.ID, ChildInput{Name: "Kid"})
	require.NoError(t, err)

	_, err = f.children.UploadAvatar(context.Background(), parent.ID, kid.ID, strings.NewReader("png"))
	require.ErrorIs(t, err, ErrUploadsDisabled)
}

func TestCurrentPlanPicksLatestActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	parent := f.user(t, "parent@test.test", domain.RoleParent)
	kid, err := f.children.Create(parent.ID, ChildInput{Name: "Kid"})
	require.NoError(t, err)
	short := f.plan(t, 1000, 30, true)
	long := f.plan(t, 5000, 365, true)

	first, err := f.subscriptions.Purchase(ctx, parent.ID, short.ID)
	require.NoError(t, err)
	second, err := f.subscriptions.Purchase(ctx, parent.ID, long.ID)
	require.NoError(t, err)
	for _, id := range []uint{first.ID, second.ID} {
		_, err := f.subscriptions.AssignToChild(ctx, parent.ID, id, kid.ID)
		require.NoError(t, err)
	}

	current, err := f.children.CurrentPlan(parent.ID, kid.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)

	f.now = f.now.AddDate(2, 0, 0)
	current, err = f.children.CurrentPlan(parent.ID, kid.ID)
	require.NoError(t, err)
	assert.Nil(t, current)
}
