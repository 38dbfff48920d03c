package leave

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/auth"
	"facultyleave/internal/domain/calendar"
)

func testWorkflow(t *testing.T, campusRoles string) Workflow {
	t.Helper()
	cfg, err := approval.ParseApproverConfig(auth.RolePrincipal, campusRoles)
	require.NoError(t, err)
	return NewWorkflow(cfg, clock)
}

func TestForwardDefaultsRemarks(t *testing.T) {
	w := testWorkflow(t, "")
	req := pendingRequest()

	out, err := w.Forward(req, hod, "")
	require.NoError(t, err)
	assert.Equal(t, StatusForwarded, out.Status)
	assert.Equal(t, approval.RemarksForwardedToPrincipal, out.HODRemarks)
	require.NotNil(t, out.HODApprovalDate)
	assert.Equal(t, fixedNow, *out.HODApprovalDate)
	assert.Equal(t, StatusPending, req.Status)

	hr := testWorkflow(t, "main=hr")
	out, err = hr.Forward(req, hod, "  ")
	require.NoError(t, err)
	assert.Equal(t, approval.RemarksForwardedToHR, out.HODRemarks)

	out, err = w.Forward(req, hod, "ok, covered")
	require.NoError(t, err)
	assert.Equal(t, "ok, covered", out.HODRemarks)
}

func TestOnlyDepartmentHODActsOnPending(t *testing.T) {
	w := testWorkflow(t, "")
	req := pendingRequest()

	for _, actor := range []approval.Actor{employee, otherHOD, farHOD, princ, hrAdmin, {EmployeeID: "x", Role: auth.RoleEmployee, Department: "CSE", Campus: "main"}} {
		_, err := w.Forward(req, actor, "")
		assert.ErrorIs(t, err, approval.ErrAuthorization, "forward by %s/%s", actor.Role, actor.EmployeeID)
		_, err = w.Reject(req, actor, "no")
		assert.ErrorIs(t, err, approval.ErrAuthorization, "reject by %s/%s", actor.Role, actor.EmployeeID)
		assert.Equal(t, StatusPending, req.Status)
	}

	out, err := w.Reject(req, hod, "exam week")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, "exam week", out.HODRemarks)
	assert.Empty(t, out.PrincipalRemarks)
}

func TestNobodyActsOnOwnRequest(t *testing.T) {
	w := testWorkflow(t, "")
	req := pendingRequest()
	req.EmployeeID = hod.EmployeeID

	_, err := w.Forward(req, hod, "")
	assert.ErrorIs(t, err, approval.ErrAuthorization)

	fwd := withStatus(pendingRequest(), StatusForwarded)
	fwd.EmployeeID = princ.EmployeeID
	_, err = w.Approve(fwd, princ, Decision{})
	assert.ErrorIs(t, err, approval.ErrAuthorization)
}

func TestRejectRequiresRemarks(t *testing.T) {
	w := testWorkflow(t, "")
	_, err := w.Reject(pendingRequest(), hod, " ")
	assert.ErrorIs(t, err, approval.ErrValidation)

	_, err = w.Reject(withStatus(pendingRequest(), StatusForwarded), princ, "")
	assert.ErrorIs(t, err, approval.ErrValidation)
}

func TestTerminalApproverPerCampus(t *testing.T) {
	fwd := withStatus(pendingRequest(), StatusForwarded)

	principalCampus := testWorkflow(t, "")
	_, err := principalCampus.Approve(fwd, hrAdmin, Decision{})
	assert.ErrorIs(t, err, approval.ErrAuthorization)
	_, err = principalCampus.Approve(fwd, hod, Decision{})
	assert.ErrorIs(t, err, approval.ErrAuthorization)

	hrCampus := testWorkflow(t, "main=hr")
	_, err = hrCampus.Approve(fwd, princ, Decision{})
	assert.ErrorIs(t, err, approval.ErrAuthorization)
	out, err := hrCampus.Approve(fwd, hrAdmin, Decision{})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, out.Status)
	assert.Equal(t, auth.RoleHR, out.FinalApproverRole)

	otherCampus := princ
	otherCampus.Campus = "north"
	_, err = principalCampus.Approve(fwd, otherCampus, Decision{})
	assert.ErrorIs(t, err, approval.ErrAuthorization)
}

func TestApproveUnmodified(t *testing.T) {
	w := testWorkflow(t, "")
	out, err := w.Approve(withStatus(pendingRequest(), StatusForwarded), princ, Decision{})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, out.Status)
	assert.Equal(t, approval.RemarksApproved, out.PrincipalRemarks)
	assert.False(t, out.IsModifiedByPrincipal)
	assert.Nil(t, out.ApprovedNumberOfDays)
	assert.Equal(t, 3.0, out.EffectiveDays())

	// Supplying the requested dates again is not a modification.
	out, err = w.Approve(withStatus(pendingRequest(), StatusForwarded), princ, Decision{
		ApprovedStartDate: calendar.MustParse("2024-06-03"),
		ApprovedEndDate:   calendar.MustParse("2024-06-05"),
	})
	require.NoError(t, err)
	assert.False(t, out.IsModifiedByPrincipal)
}

func TestScenarioPrincipalNarrowsDates(t *testing.T) {
	w := testWorkflow(t, "")
	fwd := withStatus(pendingRequest(), StatusForwarded)
	dec := Decision{
		ApprovedStartDate:  calendar.MustParse("2024-06-04"),
		ApprovedEndDate:    calendar.MustParse("2024-06-04"),
		ModificationReason: "partial approval",
	}

	out, err := w.Approve(fwd, princ, dec)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, out.Status)
	assert.True(t, out.IsModifiedByPrincipal)
	require.NotNil(t, out.ApprovedNumberOfDays)
	assert.Equal(t, 1.0, *out.ApprovedNumberOfDays)
	assert.Equal(t, 1.0, out.EffectiveDays())
	assert.Equal(t, "partial approval", out.PrincipalModificationReason)
	assert.Equal(t, 3.0, out.NumberOfDays)

	dec.ModificationReason = ""
	_, err = w.Approve(fwd, princ, dec)
	assert.ErrorIs(t, err, approval.ErrValidation)
	assert.Equal(t, StatusForwarded, fwd.Status)
	assert.Nil(t, fwd.ApprovedNumberOfDays)
}

func TestApproveRejectsBadModification(t *testing.T) {
	w := testWorkflow(t, "")
	fwd := withStatus(pendingRequest(), StatusForwarded)

	_, err := w.Approve(fwd, princ, Decision{
		ApprovedStartDate:  calendar.MustParse("2024-06-05"),
		ApprovedEndDate:    calendar.MustParse("2024-06-04"),
		ModificationReason: "typo",
	})
	assert.ErrorIs(t, err, approval.ErrValidation)

	_, err = w.Approve(fwd, princ, Decision{
		ApprovedStartDate:  calendar.MustParse("2024-06-03"),
		ApprovedEndDate:    calendar.MustParse("2024-06-08"),
		ModificationReason: "extended",
	})
	assert.ErrorIs(t, err, approval.ErrValidation)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	w := testWorkflow(t, "")
	for _, status := range []string{StatusApproved, StatusRejected} {
		req := withStatus(pendingRequest(), status)
		_, err := w.Forward(req, hod, "")
		assert.ErrorIs(t, err, approval.ErrInvalidState)
		_, err = w.Reject(req, hod, "x")
		assert.ErrorIs(t, err, approval.ErrInvalidState)
		_, err = w.Approve(req, princ, Decision{})
		assert.ErrorIs(t, err, approval.ErrInvalidState)
	}

	// Terminal state is reported before authorization.
	_, err := w.Approve(withStatus(pendingRequest(), StatusApproved), employee, Decision{})
	assert.ErrorIs(t, err, approval.ErrInvalidState)
}

func TestWrongSourceState(t *testing.T) {
	w := testWorkflow(t, "")
	_, err := w.Approve(pendingRequest(), princ, Decision{})
	assert.ErrorIs(t, err, approval.ErrInvalidState)

	_, err = w.Forward(withStatus(pendingRequest(), StatusForwarded), hod, "")
	assert.ErrorIs(t, err, approval.ErrInvalidState)

	// The HOD has no say once the request has been forwarded.
	_, err = w.Reject(withStatus(pendingRequest(), StatusForwarded), hod, "late")
	assert.ErrorIs(t, err, approval.ErrAuthorization)
}

func TestRejectApproved(t *testing.T) {
	w := testWorkflow(t, "")
	approved, err := w.Approve(withStatus(pendingRequest(), StatusForwarded), princ, Decision{})
	require.NoError(t, err)

	_, err = w.RejectApproved(approved, princ, "")
	assert.ErrorIs(t, err, approval.ErrValidation)
	_, err = w.RejectApproved(approved, hod, "no")
	assert.ErrorIs(t, err, approval.ErrAuthorization)
	_, err = w.RejectApproved(withStatus(pendingRequest(), StatusForwarded), princ, "no")
	assert.ErrorIs(t, err, approval.ErrInvalidState)

	out, err := w.RejectApproved(approved, princ, "staff shortage")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, "staff shortage", out.PrincipalRemarks)

	_, err = w.RejectApproved(out, princ, "again")
	assert.ErrorIs(t, err, approval.ErrInvalidState)
}

func TestScheduleSurvivesJSONRoundTrip(t *testing.T) {
	req := pendingRequest()
	req.AlternateSchedule[1].Periods = append(req.AlternateSchedule[1].Periods,
		PeriodAssignment{PeriodNumber: 5, SubstituteFaculty: "s2", AssignedClass: "IV-C"},
		PeriodAssignment{PeriodNumber: 7, SubstituteFaculty: "s1", AssignedClass: "I-B"},
	)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	var back LeaveRequest
	require.NoError(t, json.Unmarshal(raw, &back))

	require.Len(t, back.AlternateSchedule, len(req.AlternateSchedule))
	for i, day := range req.AlternateSchedule {
		assert.Equal(t, day.Date, back.AlternateSchedule[i].Date)
		assert.Equal(t, day.Periods, back.AlternateSchedule[i].Periods)
	}
	assert.Equal(t, req.StartDate, back.StartDate)
	assert.Contains(t, string(raw), `"startDate":"2024-06-03"`)
}

func TestOpenStartsHODFilingsForwarded(t *testing.T) {
	w := testWorkflow(t, "")
	req := pendingRequest()

	out := w.Open(req, employee)
	assert.Equal(t, StatusPending, out.Status)
	assert.Nil(t, out.HODApprovalDate)

	own := pendingRequest()
	own.EmployeeID = hod.EmployeeID
	out = w.Open(own, hod)
	assert.Equal(t, StatusForwarded, out.Status)
	assert.Equal(t, approval.RemarksForwardedToPrincipal, out.HODRemarks)
	require.NotNil(t, out.HODApprovalDate)
	assert.Equal(t, fixedNow, *out.HODApprovalDate)
	assert.Equal(t, StatusPending, own.Status)

	out = testWorkflow(t, "main=hr").Open(own, hod)
	assert.Equal(t, approval.RemarksForwardedToHR, out.HODRemarks)

	approved, err := testWorkflow(t, "main=hr").Approve(out, hrAdmin, Decision{})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
}
