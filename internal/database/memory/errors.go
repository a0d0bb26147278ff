package memory

import (
	"fmt"

	"github.com/hypernova-labs/invoicing-service/internal/database"
)

// errDuplicate reproduce las restricciones de unicidad del esquema relacional
func errDuplicate(column string) error {
	return fmt.Errorf("%w: duplicate value for unique column %s", database.ErrDuplicateIdentifier, column)
}
