package logging

import "go.uber.org/zap"

func nopForTests() *zap.Logger { return zap.NewNop() }
