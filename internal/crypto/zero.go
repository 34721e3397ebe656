package crypto

import "runtime"

// Zero затирает ключевой материал в памяти
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// LockMemory запрещает выгрузку буфера в swap. Ошибка не фатальна:
// без CAP_IPC_LOCK или при исчерпании RLIMIT_MEMLOCK ключ остается в обычной памяти.
func LockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return lockMemory(b)
}

// UnlockMemory снимает блокировку, установленную LockMemory
func UnlockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unlockMemory(b)
}
