package core

import (
	"github.com/google/uuid"

	"pkt.systems/ayen/schema"
)

func newTabID() schema.TabID {
	return schema.TabID(uuid.NewString())
}
