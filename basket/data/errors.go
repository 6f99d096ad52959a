package data

import (
	"inviqa/request-basket/config"

	"github.com/pkg/errors"
)

func errUnsupportedDriver(d config.DbDriver) error {
	return errors.Errorf("the DB driver configured (%s) is not supported", d)
}
