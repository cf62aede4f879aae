package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func TestBuildWorkbook(t *testing.T) {
	buf, err := BuildWorkbook("Queue", []string{"ID", "Title", "Price"}, [][]interface{}{
		{"a1", "Flat in Ikeja", int64(4_000_000)},
		{"a2", "Duplex in Asokoro", int64(90_000_000)},
	})
	assert.NoError(t, err)

	file, err := excelize.OpenReader(buf)
	assert.NoError(t, err)
	defer file.Close()

	assert.Equal(t, []string{"Queue"}, file.GetSheetList())

	title, err := file.GetCellValue("Queue", "B3")
	assert.NoError(t, err)
	assert.Equal(t, "Duplex in Asokoro", title)

	header, err := file.GetCellValue("Queue", "A1")
	assert.NoError(t, err)
	assert.Equal(t, "ID", header)
}
