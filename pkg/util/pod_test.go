package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/sparkkube/spark-cluster-operator/pkg/common"
)

func TestIsCreatedByOperator(t *testing.T) {
	pod := &corev1.Pod{}
	assert.False(t, IsCreatedByOperator(pod))

	pod.Labels = map[string]string{common.LabelCreatedByOperator: "true"}
	assert.True(t, IsCreatedByOperator(pod))

	pod.Labels[common.LabelCreatedByOperator] = "false"
	assert.False(t, IsCreatedByOperator(pod))
}

func TestGetPodIdentityLabels(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Labels: map[string]string{
				common.LabelRole:       "worker",
				common.LabelConfigHash: "1a2b3c4d",
			},
		},
	}
	assert.Equal(t, "worker", GetPodRole(pod))
	assert.Equal(t, "1a2b3c4d", GetPodConfigHash(pod))

	empty := &corev1.Pod{}
	assert.Empty(t, GetPodRole(empty))
	assert.Empty(t, GetPodConfigHash(empty))
}

func TestIsPodReady(t *testing.T) {
	pod := &corev1.Pod{}
	assert.False(t, IsPodReady(pod))

	pod.Status.Conditions = []corev1.PodCondition{
		{Type: corev1.PodScheduled, Status: corev1.ConditionTrue},
		{Type: corev1.PodReady, Status: corev1.ConditionFalse},
	}
	assert.False(t, IsPodReady(pod))

	pod.Status.Conditions[1].Status = corev1.ConditionTrue
	assert.True(t, IsPodReady(pod))
}

func TestIsPodTerminating(t *testing.T) {
	pod := &corev1.Pod{}
	assert.False(t, IsPodTerminating(pod))

	now := metav1.NewTime(time.Now())
	pod.DeletionTimestamp = &now
	assert.True(t, IsPodTerminating(pod))
}
