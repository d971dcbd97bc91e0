package survey_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/alimatrix/pkg/cryptox"
	"github.com/aussiebroadwan/alimatrix/pkg/surveysdk"
)

/*
 * Container setup and shared helpers for the survey service end-to-end
 * tests. The image is built once in TestMain.
 */

const (
	testImageName = "alimatrix-test:latest"

	adminUsername = "admin"
	adminPassword = "Admin123!"
	testPepper    = "e2e-pepper-value"
	testOrigin    = "alimatrix.pl"
)

// TestMain builds the Docker image once before all tests and removes it
// afterwards.
func TestMain(m *testing.M) {
	if _, err := exec.LookPath("docker"); err != nil {
		fmt.Fprintln(os.Stdout, "docker not available, skipping survey e2e tests")
		os.Exit(0)
	}

	fmt.Fprintf(os.Stdout, "Building survey service Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up survey service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/alimatrix/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // the image might not exist
}

// setupSurveyContainer starts the service with an admin account and the
// default rate limits, and returns its base URL. extraEnv overrides the
// defaults.
func setupSurveyContainer(t *testing.T, extraEnv map[string]string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.PasswordHasher{Pepper: testPepper}.Hash(adminPassword)
	require.NoError(t, err)

	env := map[string]string{
		"ENV":                 "test",
		"LOG_LEVEL":           "info",
		"LOG_FORMAT":          "json",
		"DATABASE_FILE":       "/data/alimatrix.db",
		"PEPPER_FILE":         "/data/pepper",
		"CSRF_SECRET":         "e2e-csrf-secret",
		"ALLOWED_ORIGINS":     testOrigin,
		"ADMIN_USERNAME":      adminUsername,
		"ADMIN_PASSWORD_HASH": hash,
		"ADMIN_JWT_SECRET":    "e2e-admin-jwt-secret-0123456789abcdef",
	}
	for k, v := range extraEnv {
		env[k] = v
	}

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		Files: []testcontainers.ContainerFile{{
			Reader:            strings.NewReader(testPepper),
			ContainerFilePath: "/data/pepper",
			FileMode:          0o644,
		}},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// newClient returns an SDK client presenting the allowed origin.
func newClient(baseURL string) *surveysdk.Client {
	client := surveysdk.NewClient(baseURL)
	client.Origin = "https://" + testOrigin
	return client
}

func validForm(email string) map[string]any {
	return map[string]any{
		"contactEmail":       email,
		"zgodaPrzetwarzanie": true,
		"zgodaKontakt":       true,
		"sciezkaWybor":       "established",
		"liczbaDzieci":       1,
	}
}

// adminLogin opens an admin session or fails the test.
func adminLogin(t *testing.T, client *surveysdk.Client) *surveysdk.Session {
	t.Helper()
	session, err := client.AdminLogin(t.Context(), adminUsername, adminPassword, "")
	require.NoError(t, err, "admin login should succeed")
	return session
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *surveysdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
