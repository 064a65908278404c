package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ims-go-api/internal/models"
	appErrors "github.com/noah-isme/ims-go-api/pkg/errors"
	"github.com/noah-isme/ims-go-api/pkg/export"
)

func snapshotFor(total, approved int) models.PerformanceSnapshot {
	snapshot := models.PerformanceSnapshot{TotalTasks: total, ApprovedTasks: approved}
	if total > 0 {
		snapshot.CompletionPercentage = float64(approved) / float64(total) * 100
	}
	snapshot.Grade = models.GradeFor(snapshot.CompletionPercentage)
	return snapshot
}

func TestEvaluateGate(t *testing.T) {
	cases := []struct {
		name     string
		status   models.ProgramStatus
		snapshot models.PerformanceSnapshot
		eligible bool
	}{
		{"program not completed", models.ProgramStatusActive, snapshotFor(10, 9), false},
		{"no tasks assigned", models.ProgramStatusCompleted, snapshotFor(0, 0), false},
		{"failing grade", models.ProgramStatusCompleted, snapshotFor(10, 3), false},
		{"grade C at exactly 50 percent", models.ProgramStatusCompleted, snapshotFor(10, 5), true},
		{"full completion", models.ProgramStatusCompleted, snapshotFor(10, 10), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Evaluate(tc.status, tc.snapshot)
			assert.Equal(t, tc.eligible, result.Eligible)
			assert.NotEmpty(t, result.Reason)
			assert.Equal(t, tc.snapshot.Grade, result.Grade)
		})
	}
}

func TestEvaluateCompletionFloorAboveFailBoundary(t *testing.T) {
	// 44% grades as C but sits below the 45% certificate floor
	snapshot := models.PerformanceSnapshot{TotalTasks: 100, ApprovedTasks: 44, CompletionPercentage: 44}
	snapshot.Grade = models.GradeFor(snapshot.CompletionPercentage)
	require.Equal(t, models.GradeC, snapshot.Grade)

	result := Evaluate(models.ProgramStatusCompleted, snapshot)
	assert.False(t, result.Eligible)

	snapshot.ApprovedTasks = 45
	snapshot.CompletionPercentage = 45
	result = Evaluate(models.ProgramStatusCompleted, snapshot)
	assert.True(t, result.Eligible)
}

func newCertificateService(tasks *mockTaskStore, programs *mockProgramStore, users *mockUserStore) *CertificateService {
	return NewCertificateService(tasks, programs, users, export.NewPDFExporter(), CertificateConfig{
		Issuer:   "Internship Program Office",
		SignedBy: "Program Director",
	}, zap.NewNop())
}

func TestCertificateServiceCheckEligibility(t *testing.T) {
	users := newMockUserStore(testMentor(), testIntern())
	programs := enrolledProgram(models.ProgramStatusCompleted)
	approved := reviewedTask("t1", models.TaskStatusApproved, 8)
	rejected := reviewedTask("t2", models.TaskStatusRejected, 2)
	tasks := newMockTaskStore(&approved, &rejected)
	svc := newCertificateService(tasks, programs, users)

	eligibility, err := svc.CheckEligibility(context.Background(), "intern-1", models.RoleIntern, "intern-1", "program-1")
	require.NoError(t, err)
	assert.True(t, eligibility.Eligible)
	assert.Equal(t, models.GradeC, eligibility.Grade)
	assert.Equal(t, 50.0, eligibility.CompletionPercentage)
}

func TestCertificateServiceIneligibleWhileProgramOpen(t *testing.T) {
	users := newMockUserStore(testMentor(), testIntern())
	programs := enrolledProgram(models.ProgramStatusActive)
	approved := reviewedTask("t1", models.TaskStatusApproved, 8)
	tasks := newMockTaskStore(&approved)
	svc := newCertificateService(tasks, programs, users)

	eligibility, err := svc.CheckEligibility(context.Background(), "intern-1", models.RoleIntern, "intern-1", "program-1")
	require.NoError(t, err)
	assert.False(t, eligibility.Eligible)
	assert.Equal(t, "program is not completed", eligibility.Reason)
}

func TestCertificateServiceInternCannotCheckOthers(t *testing.T) {
	svc := newCertificateService(newMockTaskStore(), enrolledProgram(models.ProgramStatusCompleted), newMockUserStore(testMentor(), testIntern()))

	_, err := svc.CheckEligibility(context.Background(), "intern-2", models.RoleIntern, "intern-1", "program-1")
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}

func TestCertificateServiceDownload(t *testing.T) {
	users := newMockUserStore(testMentor(), testIntern())
	programs := enrolledProgram(models.ProgramStatusCompleted)
	approved := reviewedTask("t1", models.TaskStatusApproved, 8)
	tasks := newMockTaskStore(&approved)
	svc := newCertificateService(tasks, programs, users)

	data, err := svc.DownloadCertificate(context.Background(), "intern-1", models.RoleIntern, "intern-1", "program-1")
	require.NoError(t, err)
	assert.True(t, len(data) > 0)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestCertificateServiceDownloadBlockedWhenIneligible(t *testing.T) {
	users := newMockUserStore(testMentor(), testIntern())
	programs := enrolledProgram(models.ProgramStatusCompleted)
	svc := newCertificateService(newMockTaskStore(), programs, users)

	_, err := svc.DownloadCertificate(context.Background(), "intern-1", models.RoleIntern, "intern-1", "program-1")
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, errorCode(t, err))
}

func TestCertificateServiceUnenrolledIntern(t *testing.T) {
	users := newMockUserStore(testMentor(), testIntern())
	programs := newMockProgramStore(testProgram(models.ProgramStatusCompleted))
	svc := newCertificateService(newMockTaskStore(), programs, users)

	_, err := svc.CheckEligibility(context.Background(), "mentor-1", models.RoleMentor, "intern-1", "program-1")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
