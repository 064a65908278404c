package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ims-go-api/internal/models"
	appErrors "github.com/noah-isme/ims-go-api/pkg/errors"
)

func newUserService(users *mockUserStore, programs *mockProgramStore) *UserService {
	return NewUserService(users, programs, validator.New(), zap.NewNop())
}

func TestUserServiceCreateMentor(t *testing.T) {
	users := newMockUserStore()
	svc := newUserService(users, newMockProgramStore())

	mentor, err := svc.CreateMentor(context.Background(), "admin-1", CreateMentorRequest{
		FullName: "Mentor Two",
		Email:    "Mentor2@Example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMentor, mentor.Role)
	assert.True(t, mentor.Active)
	assert.Equal(t, "mentor2@example.com", mentor.Email)

	stored := users.users[mentor.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "supersecret", stored.PasswordHash)
}

func TestUserServiceCreateMentorDuplicateEmail(t *testing.T) {
	users := newMockUserStore(testMentor())
	svc := newUserService(users, newMockProgramStore())

	_, err := svc.CreateMentor(context.Background(), "admin-1", CreateMentorRequest{
		FullName: "Copy",
		Email:    "mentor@example.com",
		Password: "supersecret",
	})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestUserServiceDeleteMentorBlockedWhileAssigned(t *testing.T) {
	users := newMockUserStore(testMentor())
	programs := newMockProgramStore(testProgram(models.ProgramStatusActive))
	svc := newUserService(users, programs)

	err := svc.DeleteMentor(context.Background(), "admin-1", "mentor-1")
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestUserServiceDeleteMentor(t *testing.T) {
	users := newMockUserStore(testMentor())
	svc := newUserService(users, newMockProgramStore())

	err := svc.DeleteMentor(context.Background(), "admin-1", "mentor-1")
	require.NoError(t, err)
	assert.Contains(t, users.deleted, "mentor-1")
	assert.Contains(t, users.revoked, "mentor-1")
}

func TestUserServiceDeleteMentorRejectsNonMentor(t *testing.T) {
	users := newMockUserStore(testIntern())
	svc := newUserService(users, newMockProgramStore())

	err := svc.DeleteMentor(context.Background(), "admin-1", "intern-1")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestUserServiceSetInternStatus(t *testing.T) {
	users := newMockUserStore(testIntern())
	svc := newUserService(users, newMockProgramStore())

	intern, err := svc.SetInternStatus(context.Background(), "admin-1", "intern-1", false)
	require.NoError(t, err)
	assert.False(t, intern.Active)
	assert.Contains(t, users.revoked, "intern-1")

	intern, err = svc.SetInternStatus(context.Background(), "admin-1", "intern-1", true)
	require.NoError(t, err)
	assert.True(t, intern.Active)
}

func TestUserServiceSetInternStatusRejectsNonIntern(t *testing.T) {
	users := newMockUserStore(testMentor())
	svc := newUserService(users, newMockProgramStore())

	_, err := svc.SetInternStatus(context.Background(), "admin-1", "mentor-1", false)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
