package dbconn

import "context"

type FakeConn struct {
	id      ID
	Closed  bool
	dialect string
}

var _ Conn = (*FakeConn)(nil)

func MakeFakeConn(id ID) *FakeConn {
	return &FakeConn{id: id, dialect: "fake"}
}

func (f *FakeConn) ID() ID {
	return f.id
}

func (f *FakeConn) Close(ctx context.Context) error {
	f.Closed = true
	return nil
}

func (f *FakeConn) ConnStr() string {
	return "fake://"
}

func (f *FakeConn) Dialect() string {
	return f.dialect
}
