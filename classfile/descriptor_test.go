package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldDescriptorPrimitive(t *testing.T) {
	ft, err := ParseFieldDescriptor("I")
	require.NoError(t, err)
	assert.Equal(t, byte('I'), ft.Base)
	assert.Equal(t, uint8(0), ft.Arity)
	assert.False(t, ft.IsObject())
}

func TestParseFieldDescriptorObject(t *testing.T) {
	ft, err := ParseFieldDescriptor("Ljava/lang/String;")
	require.NoError(t, err)
	assert.Equal(t, byte('L'), ft.Base)
	assert.Equal(t, "java/lang/String", ft.ClassName)
	assert.True(t, ft.IsObject())
}

func TestParseFieldDescriptorArray(t *testing.T) {
	ft, err := ParseFieldDescriptor("[[Ljava/lang/String;")
	require.NoError(t, err)
	assert.Equal(t, uint8(2), ft.Arity)
	assert.Equal(t, "java/lang/String", ft.ClassName)
}

func TestParseFieldDescriptorBaseArray(t *testing.T) {
	ft, err := ParseFieldDescriptor("[I")
	require.NoError(t, err)
	assert.Equal(t, byte('I'), ft.Base)
	assert.Equal(t, uint8(1), ft.Arity)
	assert.True(t, ft.IsObject())
}

func TestParseFieldDescriptorTrailingGarbage(t *testing.T) {
	_, err := ParseFieldDescriptor("II")
	assert.Error(t, err)
}

func TestParseMethodDescriptorSlotsAndReturn(t *testing.T) {
	slots, ret, err := ParseMethodDescriptor("(IJLjava/lang/String;)V")
	require.NoError(t, err)
	assert.Equal(t, 4, slots) // I=1, J=2, String=1
	assert.Equal(t, byte('V'), ret.Base)
}

func TestParseMethodDescriptorObjectReturn(t *testing.T) {
	_, ret, err := ParseMethodDescriptor("()Ljava/lang/Object;")
	require.NoError(t, err)
	assert.Equal(t, "java/lang/Object", ret.ClassName)
}

func TestArgumentTypesOrder(t *testing.T) {
	args, err := ArgumentTypes("(ILjava/lang/String;[D)V")
	require.NoError(t, err)
	require.Len(t, args, 3)
	assert.Equal(t, byte('I'), args[0].Base)
	assert.Equal(t, "java/lang/String", args[1].ClassName)
	assert.Equal(t, uint8(1), args[2].Arity)
}

func TestParseMethodDescriptorMissingParen(t *testing.T) {
	_, _, err := ParseMethodDescriptor("IJ)V")
	assert.Error(t, err)
}
