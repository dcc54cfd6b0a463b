package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistema-agil/vistoria/internal/models"
	"github.com/sistema-agil/vistoria/internal/session"
	"github.com/sistema-agil/vistoria/internal/submission"
)

type fakeService struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/salvar_vistoria_completa":
		_, _ = w.Write([]byte(`{"success":true,"id":42,"token":"abc","message":"ok"}`))
	case "/api/gerar_link_assinatura":
		_, _ = w.Write([]byte(`{"success":true,"token":"lnk","vistoria_id":7}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestAPI(t *testing.T, throttle time.Duration) (http.Handler, *fakeService) {
	t.Helper()
	svc := &fakeService{}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	h := New(session.Deps{
		Submitter: submission.NewClient(srv.URL),
		Throttle:  throttle,
	}, "desktop")
	return h.Routes(), svc
}

func call(t *testing.T, api http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createSession(t *testing.T, api http.Handler) string {
	t.Helper()
	rec := call(t, api, http.MethodPost, "/api/sessions", map[string]string{"device": "desktop"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["id"].(string)
}

func smallJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func signatureDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 200, 60))
	for x := 20; x < 180; x++ {
		img.Set(x, 30, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return models.DataURI("image/png", buf.Bytes())
}

func uploadPhoto(t *testing.T, api http.Handler, id, slot, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + slot + `.jpg"`}
	header["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/photos/"+slot, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	return rec
}

func TestHealthcheck(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	rec := call(t, api, http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestSessionNotFound(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	rec := call(t, api, http.MethodGet, "/api/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	id := createSession(t, api)

	rec := call(t, api, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0]["id"])
	assert.Equal(t, "desktop", list[0]["device"])

	rec = call(t, api, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(t, api, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetFieldsFormatsPlate(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	id := createSession(t, api)

	rec := call(t, api, http.MethodPut, "/api/sessions/"+id+"/fields", map[string]string{"placa": "abc-1234", "modelo": "Gol"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fields := decode(t, rec)["fields"].(map[string]any)
	veiculo := fields["veiculo"].(map[string]any)
	assert.Equal(t, "ABC1234", veiculo["placa"])
	assert.Equal(t, "Gol", veiculo["modelo"])
}

func TestSetFieldsRejectsUnknownRadioOption(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	id := createSession(t, api)

	rec := call(t, api, http.MethodPut, "/api/sessions/"+id+"/fields", map[string]string{"tipo_veiculo": "alugado"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(models.KindValidation), decode(t, rec)["code"])
}

func TestPhotoUploadRejectsNonImage(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	id := createSession(t, api)

	rec := uploadPhoto(t, api, id, "foto_frente", "application/pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = call(t, api, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Empty(t, decode(t, rec)["photos"])
}

func TestPhotoUploadAndRemove(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	id := createSession(t, api)

	rec := uploadPhoto(t, api, id, "foto_frente", "image/jpeg", smallJPEG(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "foto_frente", body["slot"])
	assert.Equal(t, "image/jpeg", body["type"])

	rec = call(t, api, http.MethodDelete, "/api/sessions/"+id+"/photos/foto_frente", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(t, api, http.MethodDelete, "/api/sessions/"+id+"/photos/foto_frente", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBlankSignatureRejected(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	id := createSession(t, api)

	img := image.NewNRGBA(image.Rect(0, 0, 50, 20))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	rec := call(t, api, http.MethodPost, "/api/sessions/"+id+"/signature", map[string]string{"data_uri": models.DataURI("image/png", buf.Bytes())})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "assinatura", decode(t, rec)["field"])
}

func TestOversizedDocumentDataURI(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	id := createSession(t, api)

	pdf := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{'x'}, 12<<20)...)
	rec := call(t, api, http.MethodPost, "/api/sessions/"+id+"/document", map[string]string{
		"name":     "nota.pdf",
		"data_uri": models.DataURI("application/pdf", pdf),
	})

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, string(models.KindCaptureSize), body["code"])

	rec = call(t, api, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, false, decode(t, rec)["has_document"])
}

func TestOversizedDocumentMultipart(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	id := createSession(t, api)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "nota.pdf")
	require.NoError(t, err)
	_, err = part.Write(append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{'x'}, 12<<20)...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/document", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, string(models.KindCaptureSize), decode(t, rec)["code"])
}

func TestDocumentDataURIWithinLimit(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	id := createSession(t, api)

	rec := call(t, api, http.MethodPost, "/api/sessions/"+id+"/document", map[string]string{
		"name":     "nota.jpg",
		"data_uri": models.DataURI("image/jpeg", smallJPEG(t)),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "nota.jpg", decode(t, rec)["name"])
}

func TestNavigation(t *testing.T) {
	api, _ := newTestAPI(t, 0)
	id := createSession(t, api)

	rec := call(t, api, http.MethodPost, "/api/sessions/"+id+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, decode(t, rec)["step"])

	rec = call(t, api, http.MethodPost, "/api/sessions/"+id+"/retreat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["step"])

	rec = call(t, api, http.MethodPost, "/api/sessions/"+id+"/jump/5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "review", decode(t, rec)["step_name"])

	rec = call(t, api, http.MethodPost, "/api/sessions/"+id+"/jump/9", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, api, http.MethodPost, "/api/sessions/"+id+"/jump/x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, api, http.MethodGet, "/api/sessions/"+id+"/review", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["questions"], 21)
}

func TestAdvanceThrottled(t *testing.T) {
	api, _ := newTestAPI(t, time.Hour)
	id := createSession(t, api)

	rec := call(t, api, http.MethodPost, "/api/sessions/"+id+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(t, api, http.MethodPost, "/api/sessions/"+id+"/advance", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestFinalizeFlow(t *testing.T) {
	api, svc := newTestAPI(t, 0)
	id := createSession(t, api)
	base := "/api/sessions/" + id

	rec := call(t, api, http.MethodPut, base+"/fields", map[string]string{
		"placa":           "abc1d23",
		"modelo":          "Gol",
		"cor":             "Prata",
		"ano":             "2020",
		"km_rodado":       "45000",
		"nome_conferente": "Ana",
		"nome_cliente":    "Carlos",
		"desc_obs_1":      "risco no para-choque",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = uploadPhoto(t, api, id, "foto_frente", "image/jpeg", smallJPEG(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, api, http.MethodPost, base+"/finalize", nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, string(models.KindState), decode(t, rec)["code"])
	assert.Empty(t, svc.bodies, "nothing sent before the signature step")

	for step := 2; step <= 6; step++ {
		rec = call(t, api, http.MethodPost, base+"/advance", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.EqualValues(t, step, decode(t, rec)["step"])
	}

	rec = call(t, api, http.MethodPost, base+"/finalize", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	body := decode(t, rec)
	violations := body["violations"].([]any)
	require.Len(t, violations, 1)
	assert.Equal(t, "assinatura", violations[0].(map[string]any)["field"])

	rec = call(t, api, http.MethodGet, base, nil)
	assert.Equal(t, "signature", decode(t, rec)["step_name"])
	assert.Empty(t, svc.bodies, "nothing sent while invalid")

	rec = call(t, api, http.MethodPost, base+"/signature", map[string]string{"data_uri": signatureDataURI(t)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, api, http.MethodPost, base+"/finalize", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, "abc", body["token"])
	assert.EqualValues(t, 42, body["id"])

	require.Len(t, svc.bodies, 1)
	sent := svc.bodies[0]
	assert.Equal(t, "ABC1D23", sent["veiculo"].(map[string]any)["placa"])
	assert.NotNil(t, sent["assinatura"])
	assert.Equal(t, "risco no para-choque", sent["desc_obs_1"])
	assert.Len(t, sent["photos"], 1)
}

func TestSignatureLinkFlow(t *testing.T) {
	api, svc := newTestAPI(t, 0)
	id := createSession(t, api)
	base := "/api/sessions/" + id

	rec := call(t, api, http.MethodPost, base+"/signature-link", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Len(t, decode(t, rec)["violations"], 4)

	rec = call(t, api, http.MethodPut, base+"/fields", map[string]string{
		"modelo":          "Gol",
		"cor":             "Prata",
		"nome_conferente": "Ana",
		"nome_cliente":    "Carlos",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, api, http.MethodPost, base+"/signature-link", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "lnk", decode(t, rec)["token"])

	require.Len(t, svc.bodies, 1)
	assert.Nil(t, svc.bodies[0]["assinatura"])
}
