package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/teambot/core/telegram/format"
	"github.com/m3rciful/teambot/internal/application"
)

const (
	textWelcome = "<b>Hi! Want to join the team?</b>\n\n" +
		"Answer three short questions and a reviewer will get back to you."

	textResumeOrReset   = "You have an unfinished application. Continue where you left off or start over?"
	textAlreadySent     = "Your application has been sent and is waiting for review."
	textAlreadyApproved = "Your application was already approved. Welcome aboard!"
	textRejectedRetry   = "Your previous application was not approved, but you can apply again."

	textQuestionSource       = "<b>1/3.</b> Where did you hear about us?"
	textQuestionAvailability = "<b>2/3.</b> How much time can you give the project each day?"
	textQuestionExperience   = "<b>3/3.</b> Have you worked on a team project before?"

	textSourceTooShort = "⚠️ Please write at least 3 characters."
	textInvalidChoice  = "Invalid choice"
	textSubmitted      = "✅ Thank you! Your application has been sent for review."

	textApproved = "🎉 Your application has been approved!"
	textRejected = "Unfortunately your application was not approved this time."
	textInvite   = "Join the team chat: %s"

	textReviewNotFound  = "Application not found"
	textReviewDone      = "This application has already been reviewed"
	textReviewUpdated   = "Updated"
	textReviewForbidden = "Reviews are accepted only in the review chat"

	textStale          = "This button is no longer active"
	textUnexpectedFile = "Please answer with text or the buttons below the questions."
	textAdminOnly      = "This command is for admins only."
	textSlowDown       = "Too many requests, slow down a little"
	textTryLater       = "Something went wrong. Please try again later."

	buttonStart   = "📝 Fill in the form"
	buttonResume  = "✅ Continue"
	buttonReset   = "🔁 Start over"
	buttonYes     = "Yes"
	buttonNo      = "No"
	buttonApprove = "Approve ✅"
	buttonReject  = "Reject ❌"

	resultPending  = "⏳ Under review"
	resultApproved = "Approved ✅"
	resultRejected = "Rejected ❌"
)

const summaryTimeLayout = "2006-01-02 15:04"

// reviewSummary renders the review chat post for app.
func reviewSummary(app *application.Application) string {
	var b strings.Builder
	b.WriteString("<b>📥 New team application</b>\n\n")
	fmt.Fprintf(&b, "<b>Applicant:</b> %s", format.HTML(app.DisplayName()))
	if app.Username != nil && app.FullName != nil {
		fmt.Fprintf(&b, " (%s)", format.HTML(*app.FullName))
	}
	fmt.Fprintf(&b, "\n<b>User ID:</b> <code>%d</code>\n", app.UserID)
	fmt.Fprintf(&b, "<b>Source:</b> %s\n", format.HTML(format.Truncate(format.Deref(app.Source, "-"), 512)))

	availability := "-"
	if app.Availability != nil {
		availability = app.Availability.Label()
	}
	fmt.Fprintf(&b, "<b>Availability:</b> %s\n", availability)

	experience := "-"
	if app.HasExperience != nil {
		experience = buttonNo
		if *app.HasExperience {
			experience = buttonYes
		}
	}
	fmt.Fprintf(&b, "<b>Team experience:</b> %s\n", experience)
	fmt.Fprintf(&b, "<b>Submitted:</b> %s\n\n", submittedAt(app))
	fmt.Fprintf(&b, "<b>Result:</b> %s", resultLine(app.Status))
	return b.String()
}

func submittedAt(app *application.Application) string {
	if app.SubmittedAt == nil {
		return "-"
	}
	return app.SubmittedAt.UTC().Format(summaryTimeLayout) + " UTC"
}

func resultLine(status application.Status) string {
	switch status {
	case application.StatusApproved:
		return resultApproved
	case application.StatusRejected:
		return resultRejected
	}
	return resultPending
}

// statsText renders the /stats reply.
func statsText(counts map[application.Status]int, at time.Time) string {
	var b strings.Builder
	b.WriteString("<b>Applications</b>\n")
	total := 0
	for _, st := range application.Statuses() {
		fmt.Fprintf(&b, "%s: %d\n", st, counts[st])
		total += counts[st]
	}
	fmt.Fprintf(&b, "total: %d\n\n<i>%s UTC</i>", total, at.UTC().Format(summaryTimeLayout))
	return b.String()
}
