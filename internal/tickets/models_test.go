package tickets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriorityFromString(t *testing.T) {
	p, err := PriorityFromString("high")
	require.NoError(t, err)
	require.Equal(t, PriorityHigh, p)

	p, err = PriorityFromString(" Critical ")
	require.NoError(t, err)
	require.Equal(t, PriorityCritical, p)

	_, err = PriorityFromString("urgent")
	require.ErrorIs(t, err, ErrPriorityNotFound)

	_, err = PriorityFromString("")
	require.ErrorIs(t, err, ErrPriorityNotFound)
}

func TestDepartmentFromString(t *testing.T) {
	d, err := DepartmentFromString("engineering")
	require.NoError(t, err)
	require.Equal(t, DepartmentEngineering, d)

	d, err = DepartmentFromString("human_resources")
	require.NoError(t, err)
	require.Equal(t, DepartmentHumanResources, d)

	d, err = DepartmentFromString("OTHER")
	require.NoError(t, err)
	require.Equal(t, DepartmentOther, d)

	_, err = DepartmentFromString("catering")
	require.ErrorIs(t, err, ErrDepartmentNotFound)
}

func TestTicketPriority_IsValid(t *testing.T) {
	require.True(t, PriorityLow.IsValid())
	require.True(t, PriorityMedium.IsValid())
	require.False(t, TicketPriority("low").IsValid())
	require.False(t, TicketPriority("").IsValid())
}
