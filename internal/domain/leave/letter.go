package leave

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/auth"
)

// RenderLetter writes the approval letter of an approved request as a one-page PDF.
func RenderLetter(w io.Writer, institution string, req LeaveRequest) error {
	if req.Status != StatusApproved {
		return fmt.Errorf("%w: letters are issued for approved requests only", approval.ErrInvalidState)
	}
	if institution == "" {
		institution = "Leave Office"
	}

	start, end := req.StartDate, req.EndDate
	if req.ApprovedStartDate != nil {
		start = *req.ApprovedStartDate
	}
	if req.ApprovedEndDate != nil {
		end = *req.ApprovedEndDate
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, institution, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Leave Approval", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	line := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(55, 7, label)
		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 7, value)
		pdf.Ln(7)
	}
	name := req.EmployeeName
	if name == "" {
		name = req.EmployeeID
	}
	line("Employee:", fmt.Sprintf("%s (%s)", name, req.EmployeeID))
	line("Department / Campus:", req.Department+" / "+req.Campus)
	line("Leave type:", string(req.LeaveType))
	period := fmt.Sprintf("%s to %s", start, end)
	if req.IsHalfDay {
		period = fmt.Sprintf("%s (%s session)", start, req.Session)
	}
	line("Approved period:", period)
	line("Days:", formatDays(req.EffectiveDays()))
	if req.IsModifiedByPrincipal {
		line("Originally requested:", fmt.Sprintf("%s to %s (%s days)", req.StartDate, req.EndDate, formatDays(req.NumberOfDays)))
		line("Modification reason:", req.PrincipalModificationReason)
	}
	line("HOD remarks:", req.HODRemarks)
	line("Approver remarks:", req.PrincipalRemarks)
	if req.PrincipalApprovalDate != nil {
		line("Approved on:", req.PrincipalApprovalDate.Format("2006-01-02"))
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, "Alternate arrangements")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	for _, day := range req.AlternateSchedule {
		parts := make([]string, 0, len(day.Periods))
		for _, p := range day.Periods {
			parts = append(parts, fmt.Sprintf("P%d %s (%s)", p.PeriodNumber, p.SubstituteFaculty, p.AssignedClass))
		}
		pdf.MultiCell(0, 6, day.Date.String()+": "+strings.Join(parts, ", "), "", "L", false)
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 11)
	signer := "Principal"
	if req.FinalApproverRole == auth.RoleHR {
		signer = "HR Office"
	}
	pdf.Cell(0, 7, "Authorized by the "+signer)

	return pdf.Output(w)
}
