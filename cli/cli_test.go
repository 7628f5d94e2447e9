package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-tracker/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runLogged(t, io.Discard, args...)
}

func runLogged(t *testing.T, logs io.Writer, args ...string) (string, error) {
	t.Helper()
	t.Setenv("POSTGRES_HOST", "")
	t.Setenv("RAW_DUMP_PATH", "")
	t.Setenv("MAKES_FILE", "")

	var out bytes.Buffer
	cmd := newRootCmd(&app{logOut: logs})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeRaw(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestCrawlFromInput(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "vehicles.csv")
	input := writeRaw(t, dir, "acura.csv",
		"year,model,trim,msrp\n2024,Acura TLX,TLX A-Spec,\"$44,500.00\"\n2024,TLX,A-Spec,44500\nN/A,MDX,Base,1\n")

	out, err := run(t, "crawl", "acura", "--input", input, "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "stored=1")
	assert.Contains(t, out, "dropped=1")

	records, err := storage.ReadAll(store)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ACURA", records[0].Make)
	assert.Equal(t, "$44,500", records[0].MSRP)
}

func TestCrawlPurgeGroup(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "vehicles.csv")
	require.NoError(t, os.WriteFile(store, []byte(strings.Join([]string{
		"year,make,model,trim,msrp",
		"2023,JEEP,Wrangler,Sport,\"$31,000\"",
		"2023,RAM,1500,Tradesman,\"$38,000\"",
		"2023,HONDA,Civic,Sport,\"$26,000\"",
	}, "\n")+"\n"), 0644))
	input := writeRaw(t, dir, "fca.csv", "year,make,model,trim,msrp\n2024,Dodge,Hornet,GT,\"$30,000\"\n")

	_, err := run(t, "crawl", "FCA", "--purge", "--input", input, "--store", store)
	require.NoError(t, err)

	records, err := storage.ReadAll(store)
	require.NoError(t, err)
	var makes []string
	for _, r := range records {
		makes = append(makes, r.Make)
	}
	assert.Equal(t, []string{"HONDA", "DODGE"}, makes)
}

func TestCrawlPurgeZeroKeepsRows(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "vehicles.csv")
	input := writeRaw(t, dir, "honda.csv", "year,model,trim,msrp\n2024,Civic,Sport,\n")

	_, err := run(t, "crawl", "honda", "--input", input, "--store", store)
	require.NoError(t, err)
	input2 := writeRaw(t, dir, "honda2.csv", "year,model,trim,msrp\n2024,Accord,EX,\n")
	_, err = run(t, "crawl", "honda", "--purge=0", "--input", input2, "--store", store)
	require.NoError(t, err)

	records, err := storage.ReadAll(store)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCrawlErrors(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "vehicles.csv")

	_, err := run(t, "crawl", "delorean", "--store", store)
	assert.ErrorContains(t, err, "unknown make")

	_, err = run(t, "crawl", "acura", "--store", store)
	assert.ErrorContains(t, err, "no site configuration")

	_, err = run(t, "crawl", "--all", "--store", store)
	assert.ErrorContains(t, err, "no manufacturer")

	_, err = run(t, "crawl", "--all", "acura", "--store", store)
	assert.Error(t, err)
}

func TestMakesListsRegistry(t *testing.T) {
	out, err := run(t, "makes")
	require.NoError(t, err)
	for _, want := range []string{"mercedes-benz", "Jaguar/Land Rover", "alfa romeo, chrysler"} {
		assert.Contains(t, out, want)
	}
}

func TestShowSummarizesStore(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "vehicles.csv")

	out, err := run(t, "show", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "No vehicles stored")

	input := writeRaw(t, dir, "kia.csv", "year,model,trim,msrp\n2024,Telluride,SX,\"$44,390\"\n")
	_, err = run(t, "crawl", "kia", "--input", input, "--store", store)
	require.NoError(t, err)

	out, err = run(t, "show", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "KIA")
	assert.Contains(t, out, "$44,390")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "vehicle-tracker "+Version+"\n", out)
}

func TestShowMirrorRequiresPostgres(t *testing.T) {
	_, err := run(t, "show", "--mirror")
	assert.ErrorContains(t, err, "POSTGRES_HOST")
}

func TestGroupRecrawlWithoutMakeColumnRefreshesPrice(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "vehicles.csv")
	first := writeRaw(t, dir, "fca-1.csv", "year,model,trim,msrp\n2024,Hornet,GT,30000\n")
	second := writeRaw(t, dir, "fca-2.csv", "year,model,trim,msrp\n2024,Hornet,GT,31000\n")

	_, err := run(t, "crawl", "fca", "--input", first, "--store", store)
	require.NoError(t, err)
	out, err := run(t, "crawl", "fca", "--purge", "--input", second, "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "stored=1")
	assert.Contains(t, out, "purged=1")

	records, err := storage.ReadAll(store)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "FCA", records[0].Make)
	assert.Equal(t, "$31,000", records[0].MSRP)
}

func TestCrawlWithoutPurgeWarns(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "vehicles.csv")
	input := writeRaw(t, dir, "honda.csv", "year,model,trim,msrp\n2024,Civic,Sport,\n")

	var logs bytes.Buffer
	_, err := runLogged(t, &logs, "crawl", "honda", "--input", input, "--store", store)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "purge argument")

	logs.Reset()
	_, err = runLogged(t, &logs, "crawl", "honda", "--purge", "--input", input, "--store", store)
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "purge argument")
}
