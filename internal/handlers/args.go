package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/chiwar/fightcore/internal/fighterr"
	"github.com/chiwar/fightcore/internal/util"

	"github.com/google/uuid"
)

// args reads positional command arguments and keeps the first parse error.
// Once an error is recorded every later read returns a zero value.
type args struct {
	command string
	raw     []string
	err     error
}

func newArgs(command string, raw []string) *args {
	return &args{command: command, raw: raw}
}

func (a *args) fail(err error) {
	if a.err == nil && err != nil {
		a.err = fighterr.Wrap(fighterr.CodeInvalidValue, fmt.Sprintf("%s: %v", a.command, err), err)
	}
}

func (a *args) require(n int) {
	if len(a.raw) < n {
		a.fail(fmt.Errorf("expected at least %d arguments, got %d", n, len(a.raw)))
	}
}

func (a *args) str(i int) string {
	return util.Arg(a.raw, i)
}

func (a *args) uuid(i int, name string) uuid.UUID {
	if a.err != nil {
		return uuid.Nil
	}
	id, err := util.ParseUUID(a.str(i), name)
	a.fail(err)
	return id
}

func (a *args) optionalUUID(i int, name string) *uuid.UUID {
	if a.err != nil {
		return nil
	}
	id, err := util.ParseOptionalUUID(a.str(i), name)
	a.fail(err)
	return id
}

func (a *args) uuids(i int, name string) []uuid.UUID {
	if a.err != nil || i >= len(a.raw) {
		return nil
	}
	ids, err := util.ParseUUIDList(a.raw[i], name)
	a.fail(err)
	return ids
}

func (a *args) int(i int, name string) int {
	if a.err != nil {
		return 0
	}
	v, err := util.ParseInt(a.str(i), name)
	a.fail(err)
	return v
}

func (a *args) float(i int, name string) float64 {
	if a.err != nil {
		return 0
	}
	v, err := util.ParseOptionalFloat(a.str(i), name)
	if err == nil && v == nil {
		err = fmt.Errorf("%s is required", name)
	}
	a.fail(err)
	if v == nil {
		return 0
	}
	return *v
}

func (a *args) bool(i int, def bool) bool {
	if a.err != nil {
		return def
	}
	v, err := util.ParseBool(a.str(i), def)
	a.fail(err)
	return v
}

// object decodes the JSON object argument at i into dst.
func (a *args) object(i int, dst any) {
	if a.err != nil {
		return
	}
	if i >= len(a.raw) {
		a.fail(fmt.Errorf("missing JSON argument %d", i))
		return
	}
	a.fail(json.Unmarshal([]byte(a.raw[i]), dst))
}
