//////////////////////////////////////////////////////////////////////////////
//
// Media errors
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package media

import "errors"

var (
	ErrUnsupported = errors.New("unsupported media format")
	errEmptySource = errors.New("source contains no packets")
)
