package firestore

import (
	"errors"

	"github.com/secmon-lab/complytrack/pkg/domain/model"
)

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrRiskNotFound)
}
