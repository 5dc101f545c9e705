package e2e

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^the homeroom service is running$`, tc.serviceIsRunning)

	// Registration steps
	ctx.Step(`^I register a school named "([^"]*)" with admin email "([^"]*)"$`, tc.registerSchool)
	ctx.Step(`^I save the provisioned school$`, tc.saveProvisionedSchool)

	// Join code steps
	ctx.Step(`^I verify the saved join code$`, tc.verifySavedJoinCode)
	ctx.Step(`^I verify the code "([^"]*)"$`, tc.verifyCode)
	ctx.Step(`^I regenerate the school's join code$`, tc.regenerateJoinCode)
	ctx.Step(`^I save the regenerated code$`, tc.saveRegeneratedCode)

	// Invitation steps
	ctx.Step(`^the admin issues an open invitation for role "([^"]*)"$`, tc.issueOpenInvitation)
	ctx.Step(`^the admin issues an email invitation for "([^"]*)" with role "([^"]*)"$`, tc.issueEmailInvitation)
	ctx.Step(`^I save the invitation code$`, tc.saveInvitationCode)
	ctx.Step(`^a new member accepts the saved invitation$`, tc.acceptSavedInvitation)
	ctx.Step(`^another member accepts the saved invitation$`, tc.acceptSavedInvitation)

	// School steps
	ctx.Step(`^I look up the school by name "([^"]*)"$`, tc.lookupSchoolByName)
	ctx.Step(`^I fetch the school details$`, tc.fetchSchoolDetails)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should be true$`, tc.responseFieldShouldBeTrue)
	ctx.Step(`^the response field "([^"]*)" should be false$`, tc.responseFieldShouldBeFalse)
}

func (tc *TestContext) serviceIsRunning(ctx context.Context) error {
	return nil
}

func (tc *TestContext) registerSchool(ctx context.Context, name, email string) error {
	body := map[string]interface{}{
		"school_name":        name,
		"admin_email":        email,
		"admin_secret":       "correct-horse-battery-staple",
		"admin_display_name": "Head of " + name,
	}
	return tc.POST("/register", body)
}

func (tc *TestContext) saveProvisionedSchool(ctx context.Context) error {
	schoolID, err := tc.GetResponseString("school_id")
	if err != nil {
		return err
	}
	code, err := tc.GetResponseString("code")
	if err != nil {
		return err
	}
	adminID, err := tc.GetResponseString("identity_id")
	if err != nil {
		return err
	}
	tc.SchoolID = schoolID
	tc.JoinCode = code
	tc.AdminID = adminID
	return nil
}

func (tc *TestContext) verifySavedJoinCode(ctx context.Context) error {
	return tc.verifyCode(ctx, tc.JoinCode)
}

func (tc *TestContext) verifyCode(ctx context.Context, code string) error {
	return tc.POST("/codes/verify", map[string]interface{}{"code": code})
}

func (tc *TestContext) regenerateJoinCode(ctx context.Context) error {
	return tc.POST("/schools/"+tc.SchoolID+"/code/regenerate", map[string]interface{}{})
}

func (tc *TestContext) saveRegeneratedCode(ctx context.Context) error {
	code, err := tc.GetResponseString("code")
	if err != nil {
		return err
	}
	tc.JoinCode = code
	return nil
}

func (tc *TestContext) issueOpenInvitation(ctx context.Context, role string) error {
	body := map[string]interface{}{
		"school_id": tc.SchoolID,
		"issuer_id": tc.AdminID,
		"mode":      "open",
		"role":      role,
	}
	return tc.POST("/invitations", body)
}

func (tc *TestContext) issueEmailInvitation(ctx context.Context, email, role string) error {
	body := map[string]interface{}{
		"school_id": tc.SchoolID,
		"issuer_id": tc.AdminID,
		"mode":      "email",
		"email":     email,
		"role":      role,
	}
	return tc.POST("/invitations", body)
}

func (tc *TestContext) saveInvitationCode(ctx context.Context) error {
	code, err := tc.GetResponseString("code")
	if err != nil {
		return err
	}
	tc.InviteCode = code
	return nil
}

func (tc *TestContext) acceptSavedInvitation(ctx context.Context) error {
	body := map[string]interface{}{
		"code":         tc.InviteCode,
		"identity_id":  uuid.NewString(),
		"display_name": "Scenario Member",
	}
	return tc.POST("/invitations/accept", body)
}

func (tc *TestContext) lookupSchoolByName(ctx context.Context, name string) error {
	return tc.GET("/schools/lookup?name="+name, nil)
}

func (tc *TestContext) fetchSchoolDetails(ctx context.Context) error {
	return tc.GET("/schools/"+tc.SchoolID, nil)
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	if tc.LastResponse.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s",
			expectedStatus, tc.LastResponse.StatusCode, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseShouldContain(ctx context.Context, field string) error {
	if !tc.ResponseContains(field) {
		return fmt.Errorf("response does not contain field: %s\nResponse: %s", field, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	actualValue, ok := data[field]
	if !ok {
		return fmt.Errorf("field %s not found in response", field)
	}

	if fmt.Sprint(actualValue) != expectedValue {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actualValue)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldBeTrue(ctx context.Context, field string) error {
	return tc.responseFieldShouldEqual(ctx, field, "true")
}

func (tc *TestContext) responseFieldShouldBeFalse(ctx context.Context, field string) error {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	// Encoders drop false booleans with omitempty, so absence counts.
	actualValue, ok := data[field]
	if !ok {
		return nil
	}
	if fmt.Sprint(actualValue) != "false" {
		return fmt.Errorf("field %s: expected false but got %v", field, actualValue)
	}
	return nil
}
