// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package tbasic

// DefaultPrelude is run by New unless WithNoStdlib is given or the program
// library holds a __startup__ program.
const DefaultPrelude = `
REM tbasic prelude
FUNCTION CLAMP(X, LO, HI)
  IF X < LO THEN RETURN LO
  IF X > HI THEN RETURN HI
  RETURN X
END FUNCTION

FUNCTION PAD$(S$, N)
  PAD$ = S$ & SPACE$(N - LEN(S$))
END FUNCTION
`
