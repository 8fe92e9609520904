// Copyright 2024 The CoreDB Authors
// This file is part of CoreDB.
//
// CoreDB is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package catalog

import (
	"github.com/coredb-io/kernel/errs"
	"github.com/coredb-io/kernel/val"
)

func typeMismatch(field string, want, got val.Kind) error {
	return errs.New(errs.TypeError, "catalog: field %q expects %s, got %s", field, want, got)
}
