package handler

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/monthroster/pkg/source"
)

func batchBody(staff int, months []string, extra map[string]any) map[string]any {
	body := requestBody("", staff, extra)
	delete(body, "month")
	body["months"] = months
	return body
}

func TestBatch(t *testing.T) {
	store := newStore(t)
	dir := filepath.Join(t.TempDir(), "out")
	r := newRouter(t, WithRunStore(store), WithBatchWorkers(2), WithOutputDir(dir))

	w := do(t, r, http.MethodPost, "/api/v1/roster/batch",
		batchBody(5, []string{"2025-10", "2025-09"}, map[string]any{"persist": true}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Succeeded)
	assert.Zero(t, resp.Failed)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "2025-10", resp.Results[0].Month, "结果顺序与请求一致")
	assert.Equal(t, "2025-09", resp.Results[1].Month)
	for _, item := range resp.Results {
		assert.NotEmpty(t, item.RunID)
		assert.True(t, item.Persisted)
		assert.Nil(t, item.Error)
		assert.Len(t, item.Cells, 5)
		assert.FileExists(t, filepath.Join(dir, item.Month+"-"+item.RunID+".json"))
	}
	assert.Len(t, resp.Results[0].Cells["S1"], 31)
	assert.Equal(t, "LV", resp.Results[1].Cells["S1"]["2025-09-01"])
	assert.NotEqual(t, "LV", resp.Results[0].Cells["S1"]["2025-10-01"], "请假只落在所属月份")

	w = do(t, r, http.MethodGet, "/api/v1/roster/runs", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total":2`)
}

func TestBatch_Errors(t *testing.T) {
	tooMany := make([]string, 13)
	for i := range tooMany {
		tooMany[i] = "2025-09"
	}
	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"缺少月份", batchBody(3, nil, nil), http.StatusBadRequest, "INVALID_INPUT"},
		{"月份格式错误", batchBody(3, []string{"2025-09", "2025/10"}, nil), http.StatusBadRequest, "INVALID_INPUT"},
		{"月份重复", batchBody(3, []string{"2025-09", "2025-09"}, nil), http.StatusBadRequest, "INVALID_INPUT"},
		{"月份过多", batchBody(3, tooMany, nil), http.StatusBadRequest, "INVALID_INPUT"},
		{"名单为空", batchBody(0, []string{"2025-09"}, nil), http.StatusBadRequest, "EMPTY_ROSTER"},
		{"未配置结果库时持久化", batchBody(3, []string{"2025-09"}, map[string]any{"persist": true}),
			http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, newRouter(t), http.MethodPost, "/api/v1/roster/batch", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"code":"`+tt.code+`"`)
		})
	}
}

func TestGenerate_OutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := newRouter(t, WithOutputDir(dir))

	w := do(t, r, http.MethodPost, "/api/v1/roster/generate", requestBody("2025-09", 5, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body generateBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Persisted, "只写文件不算入库")
	assert.FileExists(t, filepath.Join(dir, "2025-09-"+body.RunID+".json"))
}

func TestGenerate_ExtraSink(t *testing.T) {
	sink := &source.MemorySink{}
	r := newRouter(t, WithSink(sink), WithSink(nil))

	w := do(t, r, http.MethodPost, "/api/v1/roster/generate", requestBody("2025-09", 5, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body generateBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, sink.Last())
	assert.Equal(t, body.RunID, sink.Last().RunID)

	w = do(t, r, http.MethodPost, "/api/v1/roster/batch", batchBody(5, []string{"2025-09", "2025-10"}, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, sink.Outputs(), 3)
}
