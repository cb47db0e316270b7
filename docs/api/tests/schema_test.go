package tests

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func loadOpenAPI(t *testing.T) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "openapi.yaml"))
	if err != nil {
		t.Fatalf("read openapi: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return doc
}

func TestRelayRequestPayloadBounded(t *testing.T) {
	doc := loadOpenAPI(t)
	components := doc["components"].(map[string]any)
	schemas := components["schemas"].(map[string]any)
	payload := schemas["Base64Payload"].(map[string]any)
	if payload["minLength"] == nil || payload["maxLength"] == nil {
		t.Fatal("Base64Payload must bound length")
	}

	key := schemas["Base58Key"].(map[string]any)
	if key["pattern"] == nil {
		t.Fatal("Base58Key must include pattern")
	}
}

func TestRecordEnumsMatchStore(t *testing.T) {
	doc := loadOpenAPI(t)
	components := doc["components"].(map[string]any)
	schemas := components["schemas"].(map[string]any)
	record := schemas["Record"].(map[string]any)
	props := record["properties"].(map[string]any)

	results := props["result"].(map[string]any)["enum"].([]any)
	if len(results) != 3 {
		t.Fatalf("result enum expects 3 values, got %d", len(results))
	}
	categories := props["category"].(map[string]any)["enum"].([]any)
	if len(categories) != 2 {
		t.Fatalf("category enum expects 2 values, got %d", len(categories))
	}
}

func TestErrorResponsesDocumented(t *testing.T) {
	doc := loadOpenAPI(t)
	components := doc["components"].(map[string]any)
	responses := components["responses"].(map[string]any)
	for _, name := range []string{"Unauthorized", "DuplicateAccount", "BroadcastRejected"} {
		if _, ok := responses[name]; !ok {
			t.Fatalf("%s response missing", name)
		}
	}

	paths := doc["paths"].(map[string]any)
	signup := paths["/signup"].(map[string]any)["post"].(map[string]any)
	signupResponses := signup["responses"].(map[string]any)
	if _, ok := signupResponses["409"]; !ok {
		t.Fatal("/signup must document 409 DuplicateAccount response")
	}
	buy := paths["/api/v1/txn/buy"].(map[string]any)["post"].(map[string]any)
	buyResponses := buy["responses"].(map[string]any)
	if _, ok := buyResponses["502"]; !ok {
		t.Fatal("/api/v1/txn/buy must document 502 BroadcastRejected response")
	}
}

func TestProtectedPathsRequireBearer(t *testing.T) {
	doc := loadOpenAPI(t)
	paths := doc["paths"].(map[string]any)
	for path, method := range map[string]string{
		"/":               "get",
		"/txn":            "get",
		"/api/v1/txn/buy": "post",
	} {
		op := paths[path].(map[string]any)[method].(map[string]any)
		if op["security"] == nil {
			t.Fatalf("%s must declare bearer security", path)
		}
	}
}
